package types

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemProgramIDText(t *testing.T) {
	assert.Equal(t, "11111111111111111111111111111111", SystemProgramID.String())

	pk, err := PublicKeyFromBase58("11111111111111111111111111111111")
	require.NoError(t, err)
	assert.True(t, pk.IsZero())
}

func TestPublicKeyBase58(t *testing.T) {
	kp, err := NewKeypair()
	require.NoError(t, err)

	pk := kp.PublicKey()
	parsed, err := PublicKeyFromBase58(pk.String())
	require.NoError(t, err)
	assert.True(t, pk.Equals(parsed))

	_, err = PublicKeyFromBase58("0OIl")
	assert.ErrorIs(t, err, ErrInvalidPublicKey)

	_, err = PublicKeyFromBytes([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrInvalidPublicKey)
}

func TestKeypairFromSeedDeterministic(t *testing.T) {
	seed := bytes.Repeat([]byte{7}, 32)
	a, err := KeypairFromSeed(seed)
	require.NoError(t, err)
	b, err := KeypairFromSeed(seed)
	require.NoError(t, err)
	assert.Equal(t, a.PublicKey(), b.PublicKey())

	_, err = KeypairFromSeed([]byte{1})
	assert.Error(t, err)
}

func TestFormatLamports(t *testing.T) {
	assert.Equal(t, "1.5", FormatLamports(1_500_000_000))
	assert.Equal(t, "0.00089088", FormatLamports(890_880))
	assert.Equal(t, "0", FormatLamports(0))
}

func TestTransactionSignAndVerify(t *testing.T) {
	payer, err := NewKeypair()
	require.NoError(t, err)
	other, err := NewKeypair()
	require.NoError(t, err)

	ix := Instruction{
		ProgramID: SystemProgramID,
		Accounts: []AccountMeta{
			NewAccountMeta(payer.PublicKey(), true, true),
			NewAccountMeta(other.PublicKey(), true, true),
		},
		Data: []byte{1, 2, 3},
	}
	tx := NewTransaction(payer.PublicKey(), 1, ix)

	assert.Equal(t, []PublicKey{payer.PublicKey(), other.PublicKey()}, tx.Message.Signers())

	// 缺少签名者
	assert.ErrorIs(t, tx.Sign(payer), ErrMissingSigner)

	require.NoError(t, tx.Sign(payer, other))
	signers, err := tx.VerifySignatures()
	require.NoError(t, err)
	assert.True(t, signers[payer.PublicKey()])
	assert.True(t, signers[other.PublicKey()])
	assert.Equal(t, tx.Signatures[0].String(), tx.ID())

	// 篡改消息后签名失效
	tx.Message.Nonce = 2
	_, err = tx.VerifySignatures()
	assert.ErrorIs(t, err, ErrSignatureVerification)
}

func TestMessageSerializeDistinguishesNonce(t *testing.T) {
	payer, err := NewKeypair()
	require.NoError(t, err)
	ix := Instruction{ProgramID: SystemProgramID, Data: []byte{9}}

	a := NewTransaction(payer.PublicKey(), 1, ix)
	b := NewTransaction(payer.PublicKey(), 1, ix)
	c := NewTransaction(payer.PublicKey(), 2, ix)

	assert.Equal(t, a.Message.Serialize(), b.Message.Serialize())
	assert.NotEqual(t, a.Message.Serialize(), c.Message.Serialize())
}

func TestVerifyEmptyTransaction(t *testing.T) {
	payer, err := NewKeypair()
	require.NoError(t, err)
	tx := NewTransaction(payer.PublicKey(), 0)
	_, err = tx.VerifySignatures()
	assert.ErrorIs(t, err, ErrEmptyTransaction)
}
