package service

import (
	"context"
	"encoding/csv"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/stakerise/internal/catalog"
	"github.com/alanyoungcy/stakerise/internal/domain"
)

func newTestStatements(t *testing.T) (*StatementService, *memBlob, *memActivity, *fakeBus) {
	t.Helper()
	wallet := checksummed(testWallet)
	rewards := NewRewardsService(catalog.Default(), newMemStakes(sampleStakes(wallet)...), nil, discardLogger())
	blob := newMemBlob()
	activity := &memActivity{}
	bus := &fakeBus{}
	svc := NewStatementService(rewards, blob, blob, activity, bus, discardLogger())
	svc.newID = func() string { return "stmt-1" }
	return svc, blob, activity, bus
}

func TestExportStatement(t *testing.T) {
	svc, blob, activity, bus := newTestStatements(t)
	wallet := checksummed(testWallet)
	now := stakeStart.Add(73 * 24 * time.Hour)

	info, err := svc.Export(context.Background(), testWallet, now)
	require.NoError(t, err)

	assert.Equal(t, "statements/"+wallet+"/2026-03-15-stmt-1.csv", info.Path)
	assert.Equal(t, wallet, info.Wallet)
	assert.Equal(t, 3, info.Rows)
	assert.Equal(t, "text/csv", blob.types[info.Path])

	records, err := csv.NewReader(strings.NewReader(string(blob.objects[info.Path]))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, statementHeader, records[0])

	row := records[1]
	assert.Equal(t, "0", row[0])
	assert.Equal(t, "STR", row[1])
	assert.Equal(t, "12.50", row[4])
	assert.Equal(t, "2027-01-01T00:00:00Z", row[7])
	assert.Equal(t, "active", row[8])
	assert.Equal(t, "25.0000", row[10])
	assert.Equal(t, "125.0000", row[11])
	assert.Equal(t, "150.0000", row[12])
	assert.Equal(t, "850.0000", row[13])

	assert.Equal(t, "withdrawn", records[2][8])
	assert.Empty(t, records[2][12])
	assert.Empty(t, records[3][7], "unconfigured tier has no maturity")

	assert.Equal(t, []string{"statement.exported"}, activity.events())
	require.Len(t, bus.published, 1)
	assert.Equal(t, domain.ChannelStatements, bus.published[0].channel)
}

func TestListAndOpenStatements(t *testing.T) {
	svc, _, _, _ := newTestStatements(t)
	ctx := context.Background()

	empty, err := svc.List(ctx, testWallet)
	require.NoError(t, err)
	assert.Empty(t, empty)

	info, err := svc.Export(ctx, testWallet, stakeStart)
	require.NoError(t, err)

	list, err := svc.List(ctx, testWallet)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, info.Path, list[0].Path)

	rc, err := svc.Open(ctx, info.Path)
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(body), "index,asset,tier"))
}

func TestOpenRejectsForeignPaths(t *testing.T) {
	svc, blob, _, _ := newTestStatements(t)
	blob.objects["secrets/key"] = []byte("x")

	for _, p := range []string{
		"secrets/key",
		"statements/../secrets/key",
		"statements//x.csv",
		"/statements/x.csv",
		"",
	} {
		_, err := svc.Open(context.Background(), p)
		assert.ErrorIs(t, err, domain.ErrNotFound, "path %q", p)
	}
}

func TestExportInvalidWallet(t *testing.T) {
	svc, _, _, _ := newTestStatements(t)

	_, err := svc.Export(context.Background(), "0x1234", time.Now())
	assert.ErrorIs(t, err, domain.ErrInvalidAddress)
}
