package service

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/zklogin/core"
	"github.com/layer-3/zklogin/internal/sui"
	"github.com/layer-3/zklogin/internal/zkcrypto"
)

const testSender = "0x00000000000000000000000000000000000000000000000000000000000000aa"

func newEngine(t *testing.T, ledger *mockLedger) *TxEngine {
	e, err := NewTxEngine(ledger, ledger, DefaultTxConfig(), zerolog.Nop())
	require.NoError(t, err)
	return e
}

func newTestKeyPair(t *testing.T) core.EphemeralKeyPair {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return core.EphemeralKeyPair{PublicKey: pub, PrivateKey: priv}
}

func TestBuildAndSignTransfer(t *testing.T) {
	ledger := &mockLedger{}
	ledger.On("ReferenceGasPrice", mock.Anything).Return(uint64(750), nil)
	ledger.On("GasCoins", mock.Anything, testSender).Return([]core.Coin{
		{ObjectID: "0x5", Version: 3, Digest: testDigest, Balance: 2 * core.MistPerSui},
	}, nil)
	kp := newTestKeyPair(t)

	signed, err := newEngine(t, ledger).BuildAndSignTransaction(context.Background(), testSender, kp, core.TransferIntent())
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(signed.Signature)
	require.NoError(t, err)
	digest := sui.IntentDigest(signed.Bytes)
	assert.True(t, ed25519.Verify(kp.PublicKey, digest[:], raw[1:65]))

	sender := sui.MustParseAddress(testSender)
	assert.Contains(t, string(signed.Bytes), string(sender[:]))
	ledger.AssertExpectations(t)
}

func TestBuildRejectsUnknownIntent(t *testing.T) {
	e := newEngine(t, &mockLedger{})
	kp := newTestKeyPair(t)

	_, err := e.BuildAndSignTransaction(context.Background(), testSender, kp, core.Intent{Kind: "burn"})
	assert.ErrorIs(t, err, core.ErrUnknownIntent)

	_, err = e.BuildAndSignTransaction(context.Background(), testSender, kp, core.Intent{Kind: core.IntentMintNFT})
	assert.ErrorIs(t, err, core.ErrUnknownIntent)
}

func TestBuildInsufficientFunds(t *testing.T) {
	ledger := &mockLedger{}
	ledger.On("ReferenceGasPrice", mock.Anything).Return(uint64(750), nil)
	ledger.On("GasCoins", mock.Anything, mock.Anything).Return([]core.Coin{
		{ObjectID: "0x5", Version: 3, Digest: testDigest, Balance: core.MistPerSui},
	}, nil)

	_, err := newEngine(t, ledger).BuildAndSignTransaction(context.Background(), testSender, newTestKeyPair(t), core.TransferIntent())
	assert.ErrorIs(t, err, core.ErrInsufficientFunds)
}

func TestSelectGas(t *testing.T) {
	coins := []core.Coin{
		{ObjectID: "0x1", Digest: testDigest, Balance: 10},
		{ObjectID: "0x2", Digest: testDigest, Balance: 50},
		{ObjectID: "0x3", Digest: testDigest, Balance: 30},
	}

	refs, err := selectGas(coins, 60)
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, sui.MustParseAddress("0x2"), refs[0].ObjectID)
	assert.Equal(t, sui.MustParseAddress("0x3"), refs[1].ObjectID)

	_, err = selectGas(coins, 91)
	assert.ErrorIs(t, err, core.ErrInsufficientFunds)
	_, err = selectGas(nil, 0)
	assert.ErrorIs(t, err, core.ErrInsufficientFunds)
}

func TestAssembleAuthorization(t *testing.T) {
	e := newEngine(t, &mockLedger{})
	kp := newTestKeyPair(t)
	sig, err := sui.SignTransaction(kp, []byte("tx"))
	require.NoError(t, err)
	seed, err := e.DeriveAddressSeed("42", KeyClaimName, testSubject, testAudience)
	require.NoError(t, err)

	auth, err := e.AssembleAuthorization(*testProof(), seed, 110, sig)
	require.NoError(t, err)
	raw, err := base64.StdEncoding.DecodeString(auth)
	require.NoError(t, err)
	assert.Equal(t, zkcrypto.ZkLoginFlag, raw[0])

	_, err = e.AssembleAuthorization(*testProof(), seed, 110, "")
	assert.Error(t, err)
}

func TestSubmitClassifiesErrors(t *testing.T) {
	ledger := &mockLedger{}
	ledger.On("ExecuteTransaction", mock.Anything, []byte{1}, []string{"sig"}).
		Return(nil, errors.New("connection refused")).Once()
	ledger.On("ExecuteTransaction", mock.Anything, []byte{2}, []string{"sig"}).
		Return(nil, &core.SubmissionError{Kind: core.SubmissionRejected, Err: errors.New("bad sig")}).Once()
	ledger.On("ExecuteTransaction", mock.Anything, []byte{3}, []string{"sig"}).
		Return(&core.ExecutionResult{Digest: "remote"}, nil).Once()
	e := newEngine(t, ledger)
	ctx := context.Background()

	var subErr *core.SubmissionError
	_, err := e.Submit(ctx, []byte{1}, "sig")
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, core.SubmissionNetwork, subErr.Kind)

	_, err = e.Submit(ctx, []byte{2}, "sig")
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, core.SubmissionRejected, subErr.Kind)

	digest, err := e.Submit(ctx, []byte{3}, "sig")
	require.NoError(t, err)
	assert.Equal(t, "remote", digest)
	ledger.AssertExpectations(t)
}

func TestAuthorizeWithoutPreconditionsIsNoop(t *testing.T) {
	ledger := &mockLedger{}
	res, err := newEngine(t, ledger).Authorize(context.Background(), core.Session{}, core.TransferIntent())
	assert.NoError(t, err)
	assert.Nil(t, res)
	ledger.AssertNotCalled(t, "ExecuteTransaction", mock.Anything, mock.Anything, mock.Anything)
}
