// Package guides holds the built-in guided-operation strategies for VAS tasks.
package guides

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/wms-platform/vas-service/internal/domain"
)

// Guide type keys as they appear on a task's VAS
const (
	TypeRelabel       = "vas-relabel"
	TypeRepalletizing = "vas-repalletizing"
	TypeRepack        = "vas-repack"
)

// RegisterBuiltins adds every built-in guide to the registry
func RegisterBuiltins(registry *domain.GuideRegistry) {
	registry.Register(TypeRelabel, func() domain.OperationGuide { return &RelabelGuide{} })
	registry.Register(TypeRepalletizing, func() domain.OperationGuide { return &RepalletizingGuide{} })
	registry.Register(TypeRepack, func() domain.OperationGuide { return &RepackGuide{} })
}

// NewRegistry returns a registry preloaded with the built-ins
func NewRegistry() *domain.GuideRegistry {
	registry := domain.NewGuideRegistry()
	RegisterBuiltins(registry)
	return registry
}

// RelabelGuide changes the batch or product printed on the goods
type RelabelGuide struct {
	task    *domain.Task
	payload relabelPayload
}

type relabelPayload struct {
	ToBatchID string `json:"toBatchId,omitempty"`
	ToProduct string `json:"toProduct,omitempty"`
	LabelQty  int    `json:"labelQty,omitempty"`
}

func (g *RelabelGuide) Init(task *domain.Task) error {
	g.task = task
	return decodePayload(TypeRelabel, task.OperationGuide, &g.payload)
}

func (g *RelabelGuide) IsExecuting() bool { return false }

func (g *RelabelGuide) ContextActions() []domain.ContextAction {
	return []domain.ContextAction{
		{Name: "print-labels", Label: "Print labels", Source: TypeRelabel},
	}
}

func (g *RelabelGuide) CheckExecutionValidity() error {
	return nil
}

// Progress names the identity the goods are relabeled to
func (g *RelabelGuide) Progress() string {
	return "relabel to " + g.Relabeled()
}

// Relabeled describes the new identity, batch first
func (g *RelabelGuide) Relabeled() string {
	switch {
	case g.payload.ToBatchID != "" && g.payload.ToProduct != "":
		return g.payload.ToBatchID + " / " + g.payload.ToProduct
	case g.payload.ToBatchID != "":
		return g.payload.ToBatchID
	default:
		return g.payload.ToProduct
	}
}

// RepalletizingGuide moves goods onto a required number of new pallets
type RepalletizingGuide struct {
	task    *domain.Task
	payload repalletizingPayload
}

type repalletizingPayload struct {
	RequiredPalletQty int               `json:"requiredPalletQty"`
	RepalletizedInfo  []repalletizedRow `json:"repalletizedInfo,omitempty"`
}

type repalletizedRow struct {
	PalletID     string `json:"palletId"`
	LocationName string `json:"locationName,omitempty"`
}

func (g *RepalletizingGuide) Init(task *domain.Task) error {
	g.task = task
	return decodePayload(TypeRepalletizing, task.OperationGuide, &g.payload)
}

// Registered counts the pallets recorded so far
func (g *RepalletizingGuide) Registered() int {
	return len(g.payload.RepalletizedInfo)
}

func (g *RepalletizingGuide) Progress() string {
	return fmt.Sprintf("%d/%d pallets registered", g.Registered(), g.payload.RequiredPalletQty)
}

func (g *RepalletizingGuide) IsExecuting() bool {
	n := g.Registered()
	return n > 0 && n < g.payload.RequiredPalletQty
}

func (g *RepalletizingGuide) ContextActions() []domain.ContextAction {
	if g.task != nil && g.task.IsDone() {
		return nil
	}
	return []domain.ContextAction{
		{Name: "register-pallet", Label: "Register pallet", Source: TypeRepalletizing},
	}
}

func (g *RepalletizingGuide) CheckExecutionValidity() error {
	if g.Registered() < g.payload.RequiredPalletQty {
		return fmt.Errorf("%w: %d of %d pallets registered",
			domain.ErrGuideIncomplete, g.Registered(), g.payload.RequiredPalletQty)
	}
	return nil
}

// RepackGuide repacks goods into a required number of standard packages
type RepackGuide struct {
	task    *domain.Task
	payload repackPayload
}

type repackPayload struct {
	RequiredPackageQty int             `json:"requiredPackageQty"`
	StdAmount          decimal.Decimal `json:"stdAmount"`
	PackingUnit        string          `json:"packingUnit,omitempty"`
	RepackedInfo       []repackedRow   `json:"repackedInfo,omitempty"`
}

type repackedRow struct {
	PalletID       string `json:"palletId"`
	RepackedPkgQty int    `json:"repackedPkgQty"`
}

func (g *RepackGuide) Init(task *domain.Task) error {
	g.task = task
	if err := decodePayload(TypeRepack, task.OperationGuide, &g.payload); err != nil {
		return err
	}
	if !g.payload.StdAmount.IsPositive() {
		return fmt.Errorf("%w: %s: stdAmount must be positive", domain.ErrInvalidGuidePayload, TypeRepack)
	}
	return nil
}

// Repacked sums the packages recorded across pallets
func (g *RepackGuide) Repacked() int {
	total := 0
	for _, row := range g.payload.RepackedInfo {
		total += row.RepackedPkgQty
	}
	return total
}

// RepackedAmount is the repacked quantity in the task's unit of measure
func (g *RepackGuide) RepackedAmount() decimal.Decimal {
	return g.payload.StdAmount.Mul(decimal.NewFromInt(int64(g.Repacked())))
}

// Progress reports packages repacked against the requirement, with the amount in the packing unit
func (g *RepackGuide) Progress() string {
	progress := fmt.Sprintf("%d/%d packages repacked (%s", g.Repacked(), g.payload.RequiredPackageQty, g.RepackedAmount().String())
	if g.payload.PackingUnit != "" {
		progress += " " + g.payload.PackingUnit
	}
	return progress + ")"
}

func (g *RepackGuide) IsExecuting() bool {
	n := g.Repacked()
	return n > 0 && n < g.payload.RequiredPackageQty
}

func (g *RepackGuide) ContextActions() []domain.ContextAction {
	if g.task != nil && g.task.IsDone() {
		return nil
	}
	return []domain.ContextAction{
		{Name: "register-repack", Label: "Register repacked packages", Source: TypeRepack},
	}
}

func (g *RepackGuide) CheckExecutionValidity() error {
	if g.Repacked() < g.payload.RequiredPackageQty {
		return fmt.Errorf("%w: %d of %d packages repacked",
			domain.ErrGuideIncomplete, g.Repacked(), g.payload.RequiredPackageQty)
	}
	return nil
}
