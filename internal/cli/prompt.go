package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/wms-platform/vas-service/internal/domain"
)

// promptConfirmer asks on out and reads a y/N answer from in
type promptConfirmer struct {
	in  *bufio.Reader
	out io.Writer
}

func newPromptConfirmer(in io.Reader, out io.Writer) domain.Confirmer {
	return &promptConfirmer{in: bufio.NewReader(in), out: out}
}

func (p *promptConfirmer) Confirm(ctx context.Context, prompt string) (bool, error) {
	fmt.Fprintf(p.out, "%s [y/N]: ", prompt)

	line, err := p.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("failed to read answer: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// alwaysConfirm backs --yes
var alwaysConfirm = domain.ConfirmFunc(func(context.Context, string) (bool, error) {
	return true, nil
})
