package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bindgen/internal/ir"
)

func TestWriteDeclaration_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	d := createTestStruct("Ns", "RECT", ir.Field{Name: "Left", Type: ir.TypeRef{Name: "int32"}})

	inserted, err := s.WriteDeclaration(ctx, d)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = s.WriteDeclaration(ctx, d)
	require.NoError(t, err)
	assert.False(t, inserted, "identical re-import is a no-op")

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestWriteDeclaration_Conflict(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.WriteDeclaration(ctx, createTestStruct("Ns", "RECT", ir.Field{Name: "Left", Type: ir.TypeRef{Name: "int32"}}))
	require.NoError(t, err)

	_, err = s.WriteDeclaration(ctx, createTestStruct("Ns", "RECT", ir.Field{Name: "Left", Type: ir.TypeRef{Name: "int64"}}))
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "Ns.RECT", conflict.Name)
	assert.Contains(t, conflict.Error(), "Ns.RECT")
}

func TestWriteDeclarations_Atomic(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.WriteDeclaration(ctx, createTestStruct("Ns", "RECT"))
	require.NoError(t, err)

	batch := []ir.Declaration{
		createTestStruct("Ns", "POINT"),
		createTestStruct("Ns", "RECT", ir.Field{Name: "Changed", Type: ir.TypeRef{Name: "int32"}}),
	}
	_, err = s.WriteDeclarations(ctx, batch)
	require.Error(t, err)

	_, ok, err := s.FindType(ctx, "Ns.POINT")
	require.NoError(t, err)
	assert.False(t, ok, "failed batch must not leave partial writes")
}

func TestWriteDeclarations_Stats(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	batch := []ir.Declaration{createTestStruct("Ns", "A"), createTestStruct("Ns", "B")}
	stats, err := s.WriteDeclarations(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, WriteStats{Inserted: 2}, stats)

	stats, err = s.WriteDeclarations(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, WriteStats{Unchanged: 2}, stats)
}
