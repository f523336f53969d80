// 离线查看账本数据库：账户、金库记录、交易回执
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"

	"vault/config"
	"vault/db"
	"vault/keys"
	"vault/types"
	"vault/vault"
	"vault/vm"
)

func main() {
	var (
		dataPath = flag.String("data", "./data", "database directory")
		receipts = flag.Bool("receipts", false, "also list transaction receipts")
		limit    = flag.Int("limit", 20, "max entries per section, 0 = all")
	)
	flag.Parse()

	cfg := config.DefaultConfig()
	cfg.Database.Path = *dataPath
	store, err := db.NewManager(cfg)
	if err != nil {
		fmt.Printf("Failed to open DB: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	programID := types.MustPublicKeyFromBase58(cfg.Vault.ProgramID)
	if err := dumpAccounts(store, programID, *limit); err != nil {
		fmt.Printf("Error during account scan: %v\n", err)
	}
	if *receipts {
		if err := dumpReceipts(store, *limit); err != nil {
			fmt.Printf("Error during receipt scan: %v\n", err)
		}
	}
	if raw, err := store.Get(keys.KeyLatestSlot()); err == nil && raw != nil {
		fmt.Printf("Latest slot: %s\n", raw)
	}
}

func sortedKeys(m map[string][]byte) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func dumpAccounts(store *db.Manager, programID types.PublicKey, limit int) error {
	prefix := keys.KeyAccountPrefix()
	fmt.Printf("Scanning prefix: %s\n", prefix)
	entries, err := store.Scan(prefix)
	if err != nil {
		return err
	}

	count := 0
	for _, k := range sortedKeys(entries) {
		if limit > 0 && count >= limit {
			break
		}
		count++
		addr, _ := keys.AccountAddressFromKey(k)
		acct, err := vm.DecodeAccount(entries[k])
		if err != nil {
			fmt.Printf("%s  <undecodable: %v>\n", addr, err)
			continue
		}
		fmt.Printf("%s  %s SOL  owner=%s  data=%d\n", addr, types.FormatLamports(acct.Lamports), acct.Owner.Short(), len(acct.Data))

		// 金库记录
		if acct.Owner == programID {
			if st, err := vault.UnmarshalState(acct.Data); err == nil {
				fmt.Printf("  -> VaultState: vault_bump=%d state_bump=%d\n", st.VaultBump, st.StateBump)
			}
		}
	}
	fmt.Printf("Total accounts: %d (shown %d)\n", len(entries), count)
	return nil
}

func dumpReceipts(store *db.Manager, limit int) error {
	entries, err := store.Scan(keys.KeyReceiptPrefix())
	if err != nil {
		return err
	}
	rcs := make([]*vm.Receipt, 0, len(entries))
	for _, raw := range entries {
		var rc vm.Receipt
		if err := json.Unmarshal(raw, &rc); err != nil {
			continue
		}
		rcs = append(rcs, &rc)
	}
	sort.Slice(rcs, func(i, j int) bool { return rcs[i].Slot < rcs[j].Slot })

	for i, rc := range rcs {
		if limit > 0 && i >= limit {
			break
		}
		fmt.Printf("slot %d  %s  %s  fee=%d", rc.Slot, rc.TxID, rc.Status, rc.Fee)
		if rc.Error != "" {
			fmt.Printf("  err=%s", rc.Error)
		}
		fmt.Println()
	}
	fmt.Printf("Total receipts: %d\n", len(rcs))
	return nil
}
