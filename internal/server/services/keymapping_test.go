package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/dmitrijs2005/labandina/internal/common"
	"github.com/dmitrijs2005/labandina/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyMapping_CreateValidation(t *testing.T) {
	db, _ := newSQLMockDB(t)
	svc := NewKeyMappingService(db, &fakeRepoManager{s: newStore()})
	ctx := context.Background()

	cases := map[string]struct {
		name string
		data string
	}{
		"empty name":    {"  ", `{"a":"C4"}`},
		"array data":    {"layout", `["C4"]`},
		"null data":     {"layout", `null`},
		"scalar data":   {"layout", `42`},
		"invalid json":  {"layout", `{`},
		"empty payload": {"layout", ``},
	}
	for name, c := range cases {
		_, err := svc.Create(ctx, "alice", c.name, json.RawMessage(c.data))
		if !assert.ErrorIs(t, err, common.ErrorValidation, name) {
			return
		}
	}
}

func TestKeyMapping_Lifecycle(t *testing.T) {
	db, mock := newSQLMockDB(t)
	st := newStore()
	svc := NewKeyMappingService(db, &fakeRepoManager{s: st})
	ctx := context.Background()

	m, err := svc.Create(ctx, "alice", " qwerty ", json.RawMessage(`{"a":"C4"}`))
	require.NoError(t, err)
	assert.Equal(t, "qwerty", m.Name)

	_, err = svc.Create(ctx, "alice", "azerty", json.RawMessage(`{"q":"C4"}`))
	require.NoError(t, err)

	list, err := svc.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "azerty", list[0].Name)

	other, err := svc.List(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, other)

	newName := "qwerty-2"
	expectTx(mock, false)
	_, err = svc.Update(ctx, "bob", m.ID, models.KeyMappingUpdate{Name: &newName})
	assert.ErrorIs(t, err, common.ErrForbidden)

	expectTx(mock, true)
	got, err := svc.Update(ctx, "alice", m.ID, models.KeyMappingUpdate{Name: &newName, MappingData: json.RawMessage(`{"s":"D4"}`)})
	require.NoError(t, err)
	assert.Equal(t, "qwerty-2", got.Name)
	assert.JSONEq(t, `{"s":"D4"}`, string(st.mappings[m.ID].MappingData))

	expectTx(mock, false)
	_, err = svc.Update(ctx, "alice", m.ID, models.KeyMappingUpdate{MappingData: json.RawMessage(`[1]`)})
	assert.ErrorIs(t, err, common.ErrorValidation)

	expectTx(mock, false)
	assert.ErrorIs(t, svc.Delete(ctx, "bob", m.ID), common.ErrForbidden)

	expectTx(mock, true)
	require.NoError(t, svc.Delete(ctx, "alice", m.ID))
	assert.NotContains(t, st.mappings, m.ID)

	expectTx(mock, false)
	assert.ErrorIs(t, svc.Delete(ctx, "alice", m.ID), common.ErrorNotFound)

	// every transactional read takes the row lock
	assert.Equal(t, 6, st.lockedReads)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestKeyMapping_Default(t *testing.T) {
	db, _ := newSQLMockDB(t)
	st := newStore()
	svc := NewKeyMappingService(db, &fakeRepoManager{s: st})
	ctx := context.Background()

	_, err := svc.GetDefault(ctx, "alice")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	first, err := svc.SaveDefault(ctx, "alice", json.RawMessage(`{"a":"C4"}`))
	require.NoError(t, err)
	assert.Equal(t, common.DefaultKeyMappingName, first.Name)

	second, err := svc.SaveDefault(ctx, "alice", json.RawMessage(`{"a":"D4"}`))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "saving the default twice must replace it")

	got, err := svc.GetDefault(ctx, "alice")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":"D4"}`, string(got.MappingData))

	_, err = svc.SaveDefault(ctx, "alice", json.RawMessage(`"C4"`))
	assert.ErrorIs(t, err, common.ErrorValidation)

	_, err = svc.Create(ctx, "alice", common.DefaultKeyMappingName, json.RawMessage(`{}`))
	assert.ErrorIs(t, err, common.ErrAlreadyExists)
}
