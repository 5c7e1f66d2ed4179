package guides

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/vas-service/internal/domain"
)

func guidedTask(guideType, payload string) *domain.Task {
	task := &domain.Task{
		Name:   "T1",
		Set:    1,
		Status: domain.TaskStatusPending,
		VAS:    domain.VASRef{Name: guideType, GuideType: guideType},
	}
	if payload != "" {
		task.OperationGuide = json.RawMessage(payload)
	}
	return task
}

func TestNewRegistry_Builtins(t *testing.T) {
	registry := NewRegistry()
	assert.Equal(t, []string{TypeRelabel, TypeRepack, TypeRepalletizing}, registry.Keys())
}

func TestRelabelGuide(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr bool
		want    string
	}{
		{"batch only", `{"toBatchId":"B-2"}`, false, "B-2"},
		{"product only", `{"toProduct":"SKU-9"}`, false, "SKU-9"},
		{"both", `{"toBatchId":"B-2","toProduct":"SKU-9"}`, false, "B-2 / SKU-9"},
		{"neither", `{"labelQty":3}`, true, ""},
		{"empty batch", `{"toBatchId":""}`, true, ""},
		{"missing payload", "", true, ""},
		{"not json", `{"toBatchId":`, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			guide, err := NewRegistry().Resolve(guidedTask(TypeRelabel, tt.payload))
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidGuidePayload)
				return
			}
			require.NoError(t, err)
			relabel := guide.(*RelabelGuide)
			assert.Equal(t, tt.want, relabel.Relabeled())
			assert.Equal(t, "relabel to "+tt.want, relabel.Progress())
			assert.False(t, relabel.IsExecuting())
			assert.NoError(t, relabel.CheckExecutionValidity())
			require.Len(t, relabel.ContextActions(), 1)
			assert.Equal(t, TypeRelabel, relabel.ContextActions()[0].Source)
		})
	}
}

func TestRepalletizingGuide(t *testing.T) {
	tests := []struct {
		name      string
		payload   string
		executing bool
		valid     bool
	}{
		{"nothing registered", `{"requiredPalletQty":2}`, false, false},
		{"partial", `{"requiredPalletQty":2,"repalletizedInfo":[{"palletId":"P1"}]}`, true, false},
		{"complete", `{"requiredPalletQty":2,"repalletizedInfo":[{"palletId":"P1"},{"palletId":"P2","locationName":"A-01"}]}`, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			guide, err := NewRegistry().Resolve(guidedTask(TypeRepalletizing, tt.payload))
			require.NoError(t, err)
			assert.Equal(t, tt.executing, guide.IsExecuting())
			if tt.valid {
				assert.NoError(t, guide.CheckExecutionValidity())
			} else {
				assert.ErrorIs(t, guide.CheckExecutionValidity(), domain.ErrGuideIncomplete)
			}
		})
	}
}

func TestRepalletizingGuide_InvalidPayload(t *testing.T) {
	for _, payload := range []string{
		`{}`,
		`{"requiredPalletQty":0}`,
		`{"requiredPalletQty":1,"repalletizedInfo":[{}]}`,
	} {
		_, err := NewRegistry().Resolve(guidedTask(TypeRepalletizing, payload))
		assert.ErrorIs(t, err, domain.ErrInvalidGuidePayload, payload)
	}
}

func TestRepalletizingGuide_NoActionsWhenDone(t *testing.T) {
	task := guidedTask(TypeRepalletizing, `{"requiredPalletQty":1,"repalletizedInfo":[{"palletId":"P1"}]}`)
	task.Status = domain.TaskStatusDone

	guide, err := NewRegistry().Resolve(task)
	require.NoError(t, err)
	assert.Empty(t, guide.ContextActions())
}

func TestRepackGuide(t *testing.T) {
	payload := `{"requiredPackageQty":10,"stdAmount":"2.5","repackedInfo":[{"palletId":"P1","repackedPkgQty":4},{"palletId":"P2","repackedPkgQty":3}]}`
	guide, err := NewRegistry().Resolve(guidedTask(TypeRepack, payload))
	require.NoError(t, err)

	repack := guide.(*RepackGuide)
	assert.Equal(t, 7, repack.Repacked())
	assert.True(t, repack.RepackedAmount().Equal(decimal.RequireFromString("17.5")))
	assert.Equal(t, "7/10 packages repacked (17.5)", repack.Progress())
	assert.True(t, repack.IsExecuting())
	assert.ErrorIs(t, repack.CheckExecutionValidity(), domain.ErrGuideIncomplete)
}

func TestRepackGuide_Complete(t *testing.T) {
	payload := `{"requiredPackageQty":5,"stdAmount":1.25,"packingUnit":"kg","repackedInfo":[{"palletId":"P1","repackedPkgQty":5}]}`
	guide, err := NewRegistry().Resolve(guidedTask(TypeRepack, payload))
	require.NoError(t, err)

	assert.False(t, guide.IsExecuting())
	assert.NoError(t, guide.CheckExecutionValidity())
	assert.True(t, guide.(*RepackGuide).RepackedAmount().Equal(decimal.RequireFromString("6.25")))
	assert.Equal(t, "5/5 packages repacked (6.25 kg)", guide.(*RepackGuide).Progress())
}

func TestRepackGuide_InvalidPayload(t *testing.T) {
	for _, payload := range []string{
		`{"requiredPackageQty":5}`,
		`{"requiredPackageQty":5,"stdAmount":"0"}`,
		`{"requiredPackageQty":5,"stdAmount":"-1"}`,
		`{"requiredPackageQty":5,"stdAmount":1,"repackedInfo":[{"palletId":"P1","repackedPkgQty":-1}]}`,
	} {
		_, err := NewRegistry().Resolve(guidedTask(TypeRepack, payload))
		assert.ErrorIs(t, err, domain.ErrInvalidGuidePayload, payload)
	}
}
