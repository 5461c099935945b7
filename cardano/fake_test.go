package cardano_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/AlexZinkM/edufund/cardano"
)

var errMethod = errors.New("method not supported")

type fakeAPI struct {
	networkID    *int
	used         []string
	unused       []string
	change       string
	reward       []string
	balance      string
	balanceErr   error
	utxos        []string
	utxosErr     error
	usedErr      error
	changeErr    error
	rewardErr    error
	unusedErr    error
	signWitness  string
	signErr      error
	submitID     string
	submitErr    error
	signBlock    bool
	utxoCalls    atomic.Int32
	submittedHex string
	mu           sync.Mutex
}

func (f *fakeAPI) GetNetworkID(context.Context) (int, error) {
	if f.networkID == nil {
		return 0, errMethod
	}
	return *f.networkID, nil
}

func (f *fakeAPI) GetUsedAddresses(context.Context) ([]string, error) { return f.used, f.usedErr }

func (f *fakeAPI) GetUnusedAddresses(context.Context) ([]string, error) { return f.unused, f.unusedErr }

func (f *fakeAPI) GetChangeAddress(context.Context) (string, error) { return f.change, f.changeErr }

func (f *fakeAPI) GetRewardAddresses(context.Context) ([]string, error) { return f.reward, f.rewardErr }

func (f *fakeAPI) GetBalance(context.Context) (string, error) { return f.balance, f.balanceErr }

func (f *fakeAPI) GetUtxos(context.Context) ([]string, error) {
	f.utxoCalls.Add(1)
	return f.utxos, f.utxosErr
}

func (f *fakeAPI) SignTx(ctx context.Context, _ string, _ bool) (string, error) {
	if f.signBlock {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.signWitness, f.signErr
}

func (f *fakeAPI) SubmitTx(_ context.Context, txHex string) (string, error) {
	f.mu.Lock()
	f.submittedHex = txHex
	f.mu.Unlock()
	return f.submitID, f.submitErr
}

type fakeProvider struct {
	name       string
	api        cardano.API
	enableErr  error
	enabled    bool
	checkErr   error
	enables    atomic.Int32
	extensions [][]int
	mu         sync.Mutex
	// failWithExtensions rejects Enable only when extensions are requested.
	failWithExtensions bool
	gate               chan struct{}
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Enable(ctx context.Context, extensions []int) (cardano.API, error) {
	p.enables.Add(1)
	p.mu.Lock()
	p.extensions = append(p.extensions, extensions)
	p.mu.Unlock()

	if p.gate != nil {
		select {
		case <-p.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if p.failWithExtensions && len(extensions) > 0 {
		return nil, errors.New("extension not supported")
	}
	if p.enableErr != nil {
		return nil, p.enableErr
	}
	return p.api, nil
}

// checkingProvider also implements EnabledChecker.
type checkingProvider struct {
	*fakeProvider
}

func (p checkingProvider) IsEnabled(context.Context) (bool, error) {
	return p.enabled, p.checkErr
}

func intPtr(v int) *int { return &v }
