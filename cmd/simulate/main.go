// 金库端到端演示：初始化 → 存入 → 提现 → 关闭，打印每一步后的余额
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"vault/config"
	"vault/db"
	"vault/logs"
	"vault/stats"
	"vault/types"
	"vault/vault"
	"vault/vm"

	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	// 1. 解析命令行参数
	var (
		configFile  = flag.String("config", "", "config file path (YAML)")
		dataPath    = flag.String("data", "", "database directory, overrides config")
		inMemory    = flag.Bool("mem", false, "use an in-memory database")
		airdrop     = flag.Uint64("airdrop", 10*types.LamportsPerSOL, "lamports airdropped to the owner")
		deposit     = flag.Uint64("deposit", 5000, "lamports to deposit")
		withdraw    = flag.Uint64("withdraw", 2000, "lamports to withdraw")
		showMetrics = flag.Bool("metrics", true, "print collected metrics before exit")
	)
	flag.Parse()

	// 2. 加载配置
	cfg, err := config.LoadFromFile(*configFile)
	if err != nil {
		logs.Error("load config: %v", err)
		os.Exit(1)
	}
	if *dataPath != "" {
		cfg.Database.Path = *dataPath
	}
	if *inMemory {
		cfg.Database.InMemory = true
	}
	logs.SetLevel(logs.ParseLevel(cfg.Log.Level))

	if err := run(cfg, *airdrop, *deposit, *withdraw, *showMetrics); err != nil {
		logs.Error("simulate: %v", err)
		os.Exit(1)
	}
}

type simulator struct {
	x     *vm.Executor
	prog  *vault.Program
	owner *types.Keypair
	accts vault.Accounts
	nonce uint64
}

func run(cfg *config.Config, airdrop, deposit, withdraw uint64, showMetrics bool) error {
	store, err := db.NewManager(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	reg := vm.NewHandlerRegistry()
	if err := vm.RegisterDefaultHandlers(reg); err != nil {
		return err
	}
	prog, err := vault.NewProgram(cfg.Vault)
	if err != nil {
		return err
	}
	if err := reg.Register(prog); err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	logs.Info("registered programs: %v", reg.List())
	x := vm.NewExecutor(store, reg, cfg)
	x.SetMetrics(stats.NewMetrics(registry))

	owner, err := types.NewKeypair()
	if err != nil {
		return err
	}
	derived, err := prog.Derive(owner.PublicKey())
	if err != nil {
		return err
	}
	s := &simulator{x: x, prog: prog, owner: owner, accts: derived.Accounts}

	fmt.Printf("program %s\n", prog.ProgramID())
	fmt.Printf("owner   %s\n", owner.PublicKey())
	fmt.Printf("state   %s (bump %d)\n", derived.State, derived.StateBump)
	fmt.Printf("vault   %s (bump %d)\n", derived.Vault, derived.VaultBump)

	if err := x.Airdrop(owner.PublicKey(), airdrop); err != nil {
		return err
	}
	s.report("airdrop")

	pid := prog.ProgramID()
	steps := []struct {
		name string
		ix   types.Instruction
	}{
		{"initialize", vault.NewInitializeInstruction(pid, s.accts)},
		{fmt.Sprintf("deposit %d", deposit), vault.NewDepositInstruction(pid, s.accts, deposit)},
		{fmt.Sprintf("withdraw %d", withdraw), vault.NewWithdrawInstruction(pid, s.accts, withdraw)},
		{"close", vault.NewCloseInstruction(pid, s.accts)},
	}
	for _, step := range steps {
		rc, err := s.send(step.ix)
		if rc != nil {
			for _, line := range rc.Logs {
				logs.Verbose("  %s", line)
			}
		}
		if err != nil {
			return fmt.Errorf("%s: %w", step.name, err)
		}
		s.report(step.name)
	}

	if showMetrics {
		return printMetrics(registry)
	}
	return nil
}

func (s *simulator) send(ix types.Instruction) (*vm.Receipt, error) {
	s.nonce++
	tx := types.NewTransaction(s.owner.PublicKey(), s.nonce, ix)
	if err := tx.Sign(s.owner); err != nil {
		return nil, err
	}
	return s.x.ExecuteTx(tx)
}

func (s *simulator) report(step string) {
	bal := func(pk types.PublicKey) string {
		acct, err := s.x.GetAccount(pk)
		if err != nil {
			return "error: " + err.Error()
		}
		if acct == nil {
			return "-"
		}
		return types.FormatLamports(acct.Lamports) + " SOL"
	}
	fmt.Printf("%-16s owner=%-16s state=%-14s vault=%s\n",
		step, bal(s.owner.PublicKey()), bal(s.accts.State), bal(s.accts.Vault))
}

// printMetrics 打印计数器类指标
func printMetrics(g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	lines := make([]string, 0, len(families))
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if m.GetCounter() == nil {
				continue
			}
			label := ""
			for _, lp := range m.GetLabel() {
				label += fmt.Sprintf("%s=%s ", lp.GetName(), lp.GetValue())
			}
			lines = append(lines, fmt.Sprintf("%s %s%.0f", mf.GetName(), label, m.GetCounter().GetValue()))
		}
	}
	sort.Strings(lines)
	fmt.Println("metrics:")
	for _, l := range lines {
		fmt.Println("  " + l)
	}
	return nil
}
