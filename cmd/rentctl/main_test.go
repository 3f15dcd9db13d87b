package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/punchamoorthee/rentledger/internal/store"
)

func useTempStore(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "db.json")
	t.Setenv("STORE_DRIVER", "json")
	t.Setenv("STORE_PATH", path)
	return path
}

func TestSeedCreatesClients(t *testing.T) {
	path := useTempStore(t)

	cmd := SeedCmd()
	cmd.SetArgs([]string{"--count", "4", "--admin", "adm-1"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	st, err := store.OpenFileStore(path)
	require.NoError(t, err)
	clients, err := st.ListClients(context.Background())
	require.NoError(t, err)
	require.Len(t, clients, 4)
	for _, c := range clients {
		assert.Equal(t, "adm-1", c.AdminID)
		require.Len(t, c.Rentals, 1)
		assert.NotEmpty(t, c.Rentals[0].Payments)
		assert.True(t, c.Rentals[0].Deposit.Paid.IsPositive())
	}

	// A second run tops up to the requested count only.
	cmd = SeedCmd()
	cmd.SetArgs([]string{"--count", "4"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))
	st, err = store.OpenFileStore(path)
	require.NoError(t, err)
	clients, err = st.ListClients(context.Background())
	require.NoError(t, err)
	assert.Len(t, clients, 4)
}

func TestImportPreviewWritesNothing(t *testing.T) {
	path := useTempStore(t)
	sheet := filepath.Join(t.TempDir(), "clients.csv")
	require.NoError(t, os.WriteFile(sheet, []byte("Prénom;Nom;Téléphone\nAwa;Diop;771234567\n"), 0o644))

	var out bytes.Buffer
	cmd := ImportCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{sheet})
	require.NoError(t, cmd.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), `"valid"`)

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	cmd = ImportCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{sheet, "--commit"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	st, err := store.OpenFileStore(path)
	require.NoError(t, err)
	clients, err := st.ListClients(context.Background())
	require.NoError(t, err)
	require.Len(t, clients, 1)
	assert.Equal(t, "Awa", clients[0].FirstName)
}

func TestPeriodsOnEmptyStore(t *testing.T) {
	useTempStore(t)
	cmd := PeriodsCmd()
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.ExecuteContext(context.Background()))
}
