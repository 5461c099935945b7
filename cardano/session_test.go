package cardano_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlexZinkM/edufund/cardano"
)

func TestListProviders(t *testing.T) {
	assert.Empty(t, cardano.ListProviders(nil))
	assert.Empty(t, cardano.ListProviders(cardano.MapNamespace{}))

	ns := cardano.MapNamespace{}
	ns.Add(&fakeProvider{name: "Yoroi"})
	ns.Add(&fakeProvider{name: "nami"})
	ns["metamask"] = &fakeProvider{name: "metamask"}

	got := cardano.ListProviders(ns)
	require.Len(t, got, 2)
	assert.Equal(t, "nami", got[0].Name)
	assert.Equal(t, "yoroi", got[1].Name)
}

func TestSelectProvider(t *testing.T) {
	_, ok := cardano.SelectProvider(nil)
	assert.False(t, ok)

	got, ok := cardano.SelectProvider([]cardano.ProviderInfo{{Name: "nami"}, {Name: "eternl"}})
	require.True(t, ok)
	assert.Equal(t, "eternl", got.Name)

	got, ok = cardano.SelectProvider([]cardano.ProviderInfo{{Name: "lace"}, {Name: "flint"}})
	require.True(t, ok)
	assert.Equal(t, "lace", got.Name)
}

func TestConnect_NoProviders(t *testing.T) {
	s := cardano.NewSession(cardano.MapNamespace{}, cardano.SessionConfig{})

	_, err := s.Connect(context.Background())
	require.ErrorIs(t, err, cardano.ErrNoProviderFound)
	assert.Contains(t, err.Error(), "No Cardano wallet found")
	assert.False(t, s.IsConnected())
}

func TestConnect_PrefersEternl(t *testing.T) {
	nami := &fakeProvider{name: "nami", api: &fakeAPI{}}
	eternl := &fakeProvider{name: "eternl", api: &fakeAPI{}}
	ns := cardano.MapNamespace{}
	ns.Add(nami)
	ns.Add(eternl)

	s := cardano.NewSession(ns, cardano.SessionConfig{Extensions: []int{30}})
	h, err := s.Connect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "eternl", h.Provider)
	assert.Equal(t, int32(1), eternl.enables.Load())
	assert.Zero(t, nami.enables.Load())
	assert.Equal(t, [][]int{{30}}, eternl.extensions)
	assert.True(t, s.IsConnected())

	// second connect reuses the handle
	again, err := s.Connect(context.Background())
	require.NoError(t, err)
	assert.Same(t, h, again)
	assert.Equal(t, int32(1), eternl.enables.Load())
}

func TestConnect_EnableRejected(t *testing.T) {
	rejected := &cardano.ProviderError{Code: cardano.APIErrorRefused, Info: "user declined"}
	p := &fakeProvider{name: "lace", enableErr: rejected}
	ns := cardano.MapNamespace{}
	ns.Add(p)

	s := cardano.NewSession(ns, cardano.SessionConfig{})
	_, err := s.Connect(context.Background())
	require.Error(t, err)

	var pe *cardano.ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "lace", pe.Provider)
	assert.Equal(t, cardano.OpEnable, pe.Op)
	assert.True(t, pe.UserDeclined())
	assert.False(t, s.IsConnected())
}

func TestConnect_AlreadyEnabledToleratesExtensionFailure(t *testing.T) {
	p := &fakeProvider{name: "eternl", api: &fakeAPI{}, enabled: true, failWithExtensions: true}
	ns := cardano.MapNamespace{"eternl": checkingProvider{p}}

	s := cardano.NewSession(ns, cardano.SessionConfig{Extensions: []int{30}})
	h, err := s.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "eternl", h.Provider)
	assert.Equal(t, [][]int{{30}, nil}, p.extensions)
}

func TestConnect_NotEnabledExtensionFailureIsFatal(t *testing.T) {
	p := &fakeProvider{name: "eternl", api: &fakeAPI{}, enabled: false, failWithExtensions: true}
	ns := cardano.MapNamespace{"eternl": checkingProvider{p}}

	s := cardano.NewSession(ns, cardano.SessionConfig{Extensions: []int{30}})
	_, err := s.Connect(context.Background())

	var pe *cardano.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, int32(1), p.enables.Load())
}

func TestConnect_ConcurrentCallsShareEnable(t *testing.T) {
	p := &fakeProvider{name: "nami", api: &fakeAPI{}, gate: make(chan struct{})}
	ns := cardano.MapNamespace{}
	ns.Add(p)
	s := cardano.NewSession(ns, cardano.SessionConfig{})

	const callers = 8
	var wg sync.WaitGroup
	handles := make([]*cardano.WalletHandle, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			handles[i], errs[i] = s.Connect(context.Background())
		}(i)
	}
	close(p.gate)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Same(t, handles[0], handles[i])
	}
	assert.Equal(t, int32(1), p.enables.Load())
}

func TestDisconnect(t *testing.T) {
	ns := cardano.MapNamespace{}
	ns.Add(&fakeProvider{name: "flint", api: &fakeAPI{}})
	s := cardano.NewSession(ns, cardano.SessionConfig{})

	s.Disconnect()
	assert.False(t, s.IsConnected())

	_, err := s.Connect(context.Background())
	require.NoError(t, err)
	require.True(t, s.IsConnected())

	s.Disconnect()
	s.Disconnect()
	assert.False(t, s.IsConnected())
	assert.Nil(t, s.Handle())
}

func TestOperationsRequireConnection(t *testing.T) {
	s := cardano.NewSession(cardano.MapNamespace{}, cardano.SessionConfig{})
	ctx := context.Background()

	_, err := s.GetAddress(ctx)
	require.ErrorIs(t, err, cardano.ErrNotConnected)
	_, err = s.GetBalance(ctx)
	require.ErrorIs(t, err, cardano.ErrNotConnected)
	_, err = s.CheckNetwork(ctx)
	require.ErrorIs(t, err, cardano.ErrNotConnected)
}

func connected(t *testing.T, api *fakeAPI) *cardano.Session {
	t.Helper()
	ns := cardano.MapNamespace{}
	ns.Add(&fakeProvider{name: "eternl", api: api})
	s := cardano.NewSession(ns, cardano.SessionConfig{})
	_, err := s.Connect(context.Background())
	require.NoError(t, err)
	return s
}
