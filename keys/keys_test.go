// keys/keys_test.go
package keys

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAccountKeys(t *testing.T) {
	key := KeyAccount("11111111111111111111111111111111")
	assert.Equal(t, "v1_account_11111111111111111111111111111111", key)

	addr, ok := AccountAddressFromKey(key)
	assert.True(t, ok)
	assert.Equal(t, "11111111111111111111111111111111", addr)

	_, ok = AccountAddressFromKey(KeyReceipt("abc"))
	assert.False(t, ok)
}

func TestTxKeys(t *testing.T) {
	assert.Equal(t, "v1_receipt_sig1", KeyReceipt("sig1"))
	assert.Equal(t, "v1_vm_applied_tx_sig1", KeyVMAppliedTx("sig1"))
	assert.Equal(t, "v1_latest_slot", KeyLatestSlot())
	// slot 用 20 位补零，保证字典序即数值序
	assert.Equal(t, "v1_slot_00000000000000000042", KeySlotTx(42))
}

func TestStripVersion(t *testing.T) {
	assert.Equal(t, "account_x", StripVersion(KeyAccount("x")))
	assert.Equal(t, "plain", StripVersion("plain"))
}
