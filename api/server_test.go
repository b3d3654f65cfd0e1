package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/spacemeshos/go-vault/common/types"
	"github.com/spacemeshos/go-vault/events"
	"github.com/spacemeshos/go-vault/sql"
	"github.com/spacemeshos/go-vault/sql/accounts"
	"github.com/spacemeshos/go-vault/vault"
)

var smh = types.MustParseAsset("SMH")

type testClock struct {
	layer atomic.Uint32
}

func (c *testClock) CurrentLayer() types.LayerID {
	return types.LayerID(c.layer.Load())
}

type testAPI struct {
	url      string
	clock    *testClock
	registry *vault.Registry
	reporter *events.Reporter
	metrics  *prometheus.Registry
}

func newTestAPI(tb testing.TB) *testAPI {
	tb.Helper()
	db := sql.InMemory()
	tb.Cleanup(func() { require.NoError(tb, db.Close()) })
	clock := &testClock{}
	clock.layer.Store(1000)
	reporter := events.NewReporter()
	registry, err := vault.NewRegistry(db, clock,
		vault.WithLogger(zaptest.NewLogger(tb)),
		vault.WithPublisher(reporter),
	)
	require.NoError(tb, err)
	reg := prometheus.NewRegistry()
	server := NewServer("127.0.0.1:0", registry,
		WithLogger(zaptest.NewLogger(tb)),
		WithEvents(reporter),
		WithMetricsRegisterer(reg),
		WithCORSAllowedOrigins([]string{"*"}),
	)
	ts := httptest.NewServer(server.Handler())
	tb.Cleanup(ts.Close)
	return &testAPI{url: ts.URL, clock: clock, registry: registry, reporter: reporter, metrics: reg}
}

func (a *testAPI) do(tb testing.TB, method, path string, body, rst any) int {
	tb.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(tb, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, a.url+path, &buf)
	require.NoError(tb, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(tb, err)
	defer resp.Body.Close()
	if rst != nil && resp.StatusCode < 300 && resp.StatusCode != http.StatusNoContent {
		require.NoError(tb, json.NewDecoder(resp.Body).Decode(rst))
	}
	return resp.StatusCode
}

func addr(seed byte) types.Address {
	return types.GenerateAddress([]byte{seed})
}

var (
	owner = addr(1)
	bob   = addr(2)
	carol = addr(3)
)

func (a *testAPI) create(tb testing.TB, modify ...func(*createRequest)) types.VaultID {
	tb.Helper()
	req := createRequest{
		Frequency:                100,
		AmountPerCycle:           50,
		OwnerCanWithdrawAllFunds: true,
		WithdrawableAmountStacks: true,
		AcceptsAdditionalFunds:   true,
		Beneficiaries:            []types.Address{owner, bob},
		Deposit:                  1000,
		Asset:                    smh,
		Creator:                  owner,
	}
	for _, m := range modify {
		m(&req)
	}
	var rst createResponse
	require.Equal(tb, http.StatusCreated, a.do(tb, http.MethodPost, "/v1/vaults", req, &rst))
	return rst.ID
}

func TestCreateAndGet(t *testing.T) {
	a := newTestAPI(t)
	id := a.create(t)

	var v types.Vault
	require.Equal(t, http.StatusOK, a.do(t, http.MethodGet, "/v1/vaults/"+id.String(), nil, &v))
	require.Equal(t, id, v.ID)
	require.Equal(t, owner, v.Owner)
	require.Equal(t, uint64(1000), v.Balance)
	require.Equal(t, types.LayerID(1000), v.StartLayer)
	require.Equal(t, []types.Address{owner, bob}, v.Beneficiaries.List())
}

func TestCreateRejected(t *testing.T) {
	a := newTestAPI(t)
	req := createRequest{Frequency: 100, AmountPerCycle: 50, Deposit: 0, Asset: smh, Creator: owner}
	var rst errorResponse
	require.Equal(t, http.StatusBadRequest, a.do(t, http.MethodPost, "/v1/vaults", req, &rst))

	require.Equal(t, http.StatusBadRequest, a.do(t, http.MethodPost, "/v1/vaults", map[string]any{"unknown": 1}, nil))
}

func TestWithdrawFlow(t *testing.T) {
	a := newTestAPI(t)
	id := a.create(t)
	path := "/v1/vaults/" + id.String()

	require.Equal(t, http.StatusTooEarly,
		a.do(t, http.MethodPost, path+"/withdraw", senderRequest{Sender: bob}, nil))

	a.clock.layer.Add(250)
	var preview vault.Release
	require.Equal(t, http.StatusOK, a.do(t, http.MethodGet, path+"/releasable", nil, &preview))
	require.Equal(t, uint64(100), preview.Amount)

	var release vault.Release
	require.Equal(t, http.StatusOK, a.do(t, http.MethodPost, path+"/withdraw", senderRequest{Sender: bob}, &release))
	require.Equal(t, preview, release)
	require.Equal(t, types.LayerID(1200), release.To)

	require.Equal(t, http.StatusForbidden,
		a.do(t, http.MethodPost, path+"/withdraw", senderRequest{Sender: carol}, nil))

	var balance balanceResponse
	require.Equal(t, http.StatusOK,
		a.do(t, http.MethodGet, "/v1/accounts/"+bob.String()+"/SMH", nil, &balance))
	require.Equal(t, uint64(100), balance.Balance)

	var held []accounts.Account
	require.Equal(t, http.StatusOK, a.do(t, http.MethodGet, "/v1/accounts/"+bob.String(), nil, &held))
	require.Equal(t, []accounts.Account{{Address: bob, Asset: smh, Balance: 100, Layer: 1250}}, held)
	require.Equal(t, http.StatusOK, a.do(t, http.MethodGet, "/v1/accounts/"+carol.String(), nil, &held))
	require.Empty(t, held)

	require.Equal(t, http.StatusForbidden,
		a.do(t, http.MethodPost, path+"/withdraw-all", senderRequest{Sender: bob}, nil))
	var all withdrawAllResponse
	require.Equal(t, http.StatusOK,
		a.do(t, http.MethodPost, path+"/withdraw-all", senderRequest{Sender: owner}, &all))
	require.Equal(t, uint64(900), all.Amount)

	require.Equal(t, http.StatusConflict,
		a.do(t, http.MethodPost, path+"/deposit", depositRequest{Sender: owner, Amount: 10, Asset: smh}, nil))
}

func TestDeposit(t *testing.T) {
	a := newTestAPI(t)
	id := a.create(t)
	path := "/v1/vaults/" + id.String() + "/deposit"

	require.Equal(t, http.StatusNoContent,
		a.do(t, http.MethodPost, path, depositRequest{Sender: carol, Amount: 10, Asset: smh}, nil))
	require.Equal(t, http.StatusBadRequest,
		a.do(t, http.MethodPost, path, depositRequest{Sender: carol, Amount: 10, Asset: types.MustParseAsset("BTC")}, nil))

	v, err := a.registry.Get(id)
	require.NoError(t, err)
	require.Equal(t, uint64(1010), v.Balance)
}

func TestSettings(t *testing.T) {
	a := newTestAPI(t)
	id := a.create(t)
	path := "/v1/vaults/" + id.String() + "/settings"

	update := settingsRequest{Sender: owner, WithdrawableAmountStacks: false, AcceptsAdditionalFunds: true}
	require.Equal(t, http.StatusNoContent, a.do(t, http.MethodPost, path, update, nil))
	require.Equal(t, http.StatusBadRequest, a.do(t, http.MethodPost, path, update, nil))

	require.Equal(t, http.StatusForbidden, a.do(t, http.MethodPost, path+"/lock", senderRequest{Sender: bob}, nil))
	require.Equal(t, http.StatusNoContent, a.do(t, http.MethodPost, path+"/lock", senderRequest{Sender: owner}, nil))
	require.Equal(t, http.StatusConflict, a.do(t, http.MethodPost, path+"/lock", senderRequest{Sender: owner}, nil))
}

func TestBeneficiaries(t *testing.T) {
	a := newTestAPI(t)
	id := a.create(t)
	path := "/v1/vaults/" + id.String() + "/beneficiaries"

	require.Equal(t, http.StatusNoContent,
		a.do(t, http.MethodPost, path, beneficiaryRequest{Sender: owner, Address: carol}, nil))

	var member membershipResponse
	require.Equal(t, http.StatusOK, a.do(t, http.MethodGet, path+"/"+carol.String(), nil, &member))
	require.True(t, member.Beneficiary)

	var found []*types.Vault
	require.Equal(t, http.StatusOK,
		a.do(t, http.MethodGet, "/v1/beneficiaries/"+carol.String()+"/vaults", nil, &found))
	require.Len(t, found, 1)
	require.Equal(t, id, found[0].ID)

	require.Equal(t, http.StatusForbidden,
		a.do(t, http.MethodDelete, path+"/"+carol.String()+"?sender="+bob.String(), nil, nil))
	require.Equal(t, http.StatusNoContent,
		a.do(t, http.MethodDelete, path+"/"+carol.String()+"?sender="+carol.String(), nil, nil))
	require.Equal(t, http.StatusBadRequest,
		a.do(t, http.MethodDelete, path+"/"+bob.String()+"?sender=garbage", nil, nil))

	require.Equal(t, http.StatusOK, a.do(t, http.MethodGet, path+"/"+carol.String(), nil, &member))
	require.False(t, member.Beneficiary)

	found = nil
	require.Equal(t, http.StatusOK,
		a.do(t, http.MethodGet, "/v1/beneficiaries/"+carol.String()+"/vaults", nil, &found))
	require.Empty(t, found)
}

func TestByOwner(t *testing.T) {
	a := newTestAPI(t)
	first := a.create(t)
	second := a.create(t)
	a.create(t, func(req *createRequest) {
		req.Creator = carol
		req.Beneficiaries = []types.Address{carol}
	})

	var found []*types.Vault
	require.Equal(t, http.StatusOK, a.do(t, http.MethodGet, "/v1/owners/"+owner.String()+"/vaults", nil, &found))
	require.Len(t, found, 2)
	require.ElementsMatch(t, []types.VaultID{first, second}, []types.VaultID{found[0].ID, found[1].ID})
}

func TestNotFound(t *testing.T) {
	a := newTestAPI(t)
	var rst errorResponse
	id := types.VaultID{1}
	require.Equal(t, http.StatusNotFound, a.do(t, http.MethodGet, "/v1/vaults/"+id.String(), nil, nil))
	require.Equal(t, http.StatusBadRequest, a.do(t, http.MethodGet, "/v1/vaults/not-an-id", nil, &rst))
	require.Equal(t, http.StatusBadRequest, a.do(t, http.MethodGet, "/v1/owners/sm1invalid/vaults", nil, nil))
}

func TestRecentEvents(t *testing.T) {
	a := newTestAPI(t)
	id := a.create(t)

	var evs []json.RawMessage
	require.Equal(t, http.StatusOK, a.do(t, http.MethodGet, "/v1/events?limit=2", nil, &evs))
	require.Len(t, evs, 2)

	evs = nil
	require.Equal(t, http.StatusOK, a.do(t, http.MethodGet, "/v1/events", nil, &evs))
	// created plus one event per beneficiary
	require.Len(t, evs, 3)
	var first struct {
		Type  events.EventType `json:"type"`
		Vault types.VaultID    `json:"vault"`
	}
	require.NoError(t, json.Unmarshal(evs[0], &first))
	require.Equal(t, events.TypeVaultCreated, first.Type)
	require.Equal(t, id, first.Vault)

	require.Equal(t, http.StatusBadRequest, a.do(t, http.MethodGet, "/v1/events?limit=-1", nil, nil))
}

func TestStreamEvents(t *testing.T) {
	a := newTestAPI(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.url+"/v1/events/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "application/x-ndjson", resp.Header.Get("Content-Type"))

	id := a.create(t)
	scanner := bufio.NewScanner(resp.Body)
	var received []events.EventType
	for len(received) < 3 && scanner.Scan() {
		var ev struct {
			Type  events.EventType `json:"type"`
			Vault types.VaultID    `json:"vault"`
		}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &ev))
		require.Equal(t, id, ev.Vault)
		received = append(received, ev.Type)
	}
	require.Equal(t, []events.EventType{
		events.TypeVaultCreated,
		events.TypeBeneficiaryAdded,
		events.TypeBeneficiaryAdded,
	}, received)
}

func TestCORS(t *testing.T) {
	a := newTestAPI(t)
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, a.url+"/v1/events", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://example.com")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestRequestMetrics(t *testing.T) {
	a := newTestAPI(t)
	a.create(t)
	families, err := a.metrics.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, family := range families {
		names = append(names, family.GetName())
	}
	require.Contains(t, names, "vault_http_request_duration_seconds")
}

func TestStatusOf(t *testing.T) {
	for _, tc := range []struct {
		err    error
		status int
	}{
		{vault.ErrUnauthorized, http.StatusForbidden},
		{vault.ErrInvalidState, http.StatusConflict},
		{vault.ErrNotFound, http.StatusNotFound},
		{vault.ErrInvalidArgument, http.StatusBadRequest},
		{vault.ErrNoProgress, http.StatusTooEarly},
		{vault.ErrOverflow, http.StatusUnprocessableEntity},
		{vault.ErrTransferFailed, http.StatusBadGateway},
		{sql.ErrNoConnection, http.StatusInternalServerError},
	} {
		t.Run(tc.err.Error(), func(t *testing.T) {
			require.Equal(t, tc.status, statusOf(tc.err))
		})
	}
}
