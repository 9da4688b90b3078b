package binding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "docket/pkg/domain"
)

// recordingSink captures invalidation fan-out order.
type recordingSink struct {
	invalidated []Binding
	err         error
}

func (s *recordingSink) ConsumerInvalidated(_ context.Context, b Binding) error {
	if s.err != nil {
		return s.err
	}
	s.invalidated = append(s.invalidated, b)
	return nil
}

func TestRecordIsIdempotent(t *testing.T) {
	ctx := context.Background()
	registry := NewRegistry()
	groupID := id.NewGroupID()
	b, err := SectionBinding("finances")
	require.NoError(t, err)

	registry.Record(ctx, groupID, b)
	registry.Record(ctx, groupID, b)

	assert.Len(t, registry.BindingsFor(ctx, groupID), 1)
	assert.True(t, registry.IsBound(ctx, groupID))
}

func TestBindingsForPreservesCreationOrder(t *testing.T) {
	ctx := context.Background()
	registry := NewRegistry()
	groupID := id.NewGroupID()
	section, err := SectionBinding("finances")
	require.NoError(t, err)

	registry.Record(ctx, groupID, section)
	registry.Record(ctx, groupID, AssessmentBinding())

	got := registry.BindingsFor(ctx, groupID)
	require.Len(t, got, 2)
	assert.Equal(t, section, got[0])
	assert.Equal(t, AssessmentBinding(), got[1])
}

func TestBindingsForUnknownGroupIsEmpty(t *testing.T) {
	ctx := context.Background()
	registry := NewRegistry()
	assert.Empty(t, registry.BindingsFor(ctx, id.NewGroupID()))
	assert.False(t, registry.IsBound(ctx, id.NewGroupID()))
}

func TestReleaseAbsentBindingIsNoop(t *testing.T) {
	ctx := context.Background()
	registry := NewRegistry()
	groupID := id.NewGroupID()
	b, err := SectionBinding("finances")
	require.NoError(t, err)

	registry.Release(ctx, groupID, b)
	assert.False(t, registry.IsBound(ctx, groupID))

	registry.Record(ctx, groupID, b)
	registry.Release(ctx, groupID, b)
	assert.False(t, registry.IsBound(ctx, groupID))
}

func TestInvalidateFansOutInOrder(t *testing.T) {
	ctx := context.Background()
	sink := &recordingSink{}
	registry := NewRegistry(WithSink(sink))
	groupID := id.NewGroupID()
	section, err := SectionBinding("employment")
	require.NoError(t, err)

	registry.Record(ctx, groupID, section)
	registry.Record(ctx, groupID, AssessmentBinding())

	require.NoError(t, registry.Invalidate(ctx, groupID))
	assert.Equal(t, []Binding{section, AssessmentBinding()}, sink.invalidated)
}

func TestInvalidateWithoutSinkIsNoop(t *testing.T) {
	ctx := context.Background()
	registry := NewRegistry()
	groupID := id.NewGroupID()
	b, err := SectionBinding("finances")
	require.NoError(t, err)
	registry.Record(ctx, groupID, b)

	assert.NoError(t, registry.Invalidate(ctx, groupID))
}

func TestGroupDeletedInvalidatesThenReleases(t *testing.T) {
	ctx := context.Background()
	sink := &recordingSink{}
	registry := NewRegistry(WithSink(sink))
	groupID := id.NewGroupID()
	b, err := SectionBinding("finances")
	require.NoError(t, err)
	registry.Record(ctx, groupID, b)

	require.NoError(t, registry.GroupDeleted(ctx, groupID))
	assert.Equal(t, []Binding{b}, sink.invalidated)
	assert.False(t, registry.IsBound(ctx, groupID))
}

func TestSectionBindingRequiresSection(t *testing.T) {
	_, err := SectionBinding("")
	assert.Error(t, err)
}

func TestConsumerLabel(t *testing.T) {
	b, err := SectionBinding("finances")
	require.NoError(t, err)
	assert.Equal(t, "checklist section finances", b.ConsumerLabel())
	assert.Equal(t, "case assessment", AssessmentBinding().ConsumerLabel())
}
