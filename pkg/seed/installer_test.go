package seed_test

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ethereum/go-ethereum/common"
	"github.com/luxfi/explorer-init/pkg/application"
	"github.com/luxfi/explorer-init/pkg/seed"
	"github.com/luxfi/log"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var now = time.Date(2022, 3, 1, 12, 0, 0, 0, time.UTC)

func q(s string) string { return "^" + regexp.QuoteMeta(s) }

var _ = Describe("Catalog", func() {
	It("lists the sixteen precompiles in installation order", func() {
		entries := seed.Catalog()
		Expect(entries).To(HaveLen(16))
		Expect(entries[0].Name).To(Equal("ArbOS"))
		Expect(entries[0].Address).To(Equal(common.HexToAddress("0xa4b05")))
		Expect(entries[1].Artifact).To(Equal("ArbSys"))
		Expect(entries[1].Address).To(Equal(common.HexToAddress("0x64")))
		Expect(entries[15].Name).To(Equal("ArbDebug"))
	})

	It("has unique addresses", func() {
		seen := map[common.Address]bool{}
		for _, e := range seed.Catalog() {
			Expect(seen).NotTo(HaveKey(e.Address))
			seen[e.Address] = true
		}
	})

	It("hands out copies", func() {
		entries := seed.Catalog()
		entries[0].Name = "changed"
		Expect(seed.Catalog()[0].Name).To(Equal("ArbOS"))
	})

	It("looks entries up by name or artifact", func() {
		e, ok := seed.Lookup("ArbosActs")
		Expect(ok).To(BeTrue())
		Expect(e.Name).To(Equal("ArbOS"))

		e, ok = seed.Lookup("NodeInterface")
		Expect(ok).To(BeTrue())
		Expect(e.Version).To(Equal("Not installed"))

		_, ok = seed.Lookup("Unknown")
		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("LoadArtifact", func() {
	It("reads the compacted abi and trimmed description", func() {
		art, err := seed.LoadArtifact("testdata", "ArbGasInfo")
		Expect(err).NotTo(HaveOccurred())
		Expect(string(art.ABI)).To(HavePrefix(`[{"inputs":[],"name":"getGasAccountingParams"`))
		Expect(art.Description).To(Equal("Provides insight into the cost of using the chain."))
	})

	It("fails on a missing artifact", func() {
		_, err := seed.LoadArtifact("testdata", "ArbOwner")
		Expect(err).To(MatchError(os.ErrNotExist))
	})

	It("fails on malformed json", func() {
		dir := GinkgoT().TempDir()
		Expect(os.WriteFile(filepath.Join(dir, "Bad.abi"), []byte("[{"), 0644)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(dir, "Bad.txt"), []byte("bad"), 0644)).To(Succeed())

		_, err := seed.LoadArtifact(dir, "Bad")
		Expect(err).To(MatchError(ContainSubstring("failed to parse abi")))
	})
})

var _ = Describe("Installer", func() {
	var (
		mock sqlmock.Sqlmock
		app  *application.App
		ctx  context.Context
		db   *sql.DB
	)

	arbSys, _ := seed.Lookup("ArbSys")
	gasInfo, _ := seed.Lookup("ArbGasInfo")

	BeforeEach(func() {
		sqlDB, m, err := sqlmock.New()
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { _ = sqlDB.Close() })
		mock, db = m, sqlDB

		app = application.New()
		app.Setup(GinkgoT().TempDir(), log.NewLogger("test"), nil)
		app.Now = func() time.Time { return now }
		ctx = context.Background()
	})

	AfterEach(func() {
		Expect(mock.ExpectationsWereMet()).To(Succeed())
	})

	expectMethod := func(identifier int64) {
		mock.ExpectExec(q("INSERT INTO contract_methods(identifier, abi, type, inserted_at, updated_at) VALUES ($1, $2, $3, $4, $5) " +
			"ON CONFLICT (identifier, abi) DO UPDATE SET identifier = EXCLUDED.identifier, abi = EXCLUDED.abi;")).
			WithArgs(identifier, sqlmock.AnyArg(), "ArbOS", now, now).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}

	expectEntry := func(e seed.Entry, coinBalances bool, description string) {
		hash := e.Address.Bytes()
		mock.ExpectExec(q("INSERT INTO addresses(hash, contract_code, verified, inserted_at, updated_at) VALUES ($1, $2, $3, $4, $5) " +
			"ON CONFLICT (hash) DO UPDATE SET contract_code = EXCLUDED.contract_code, verified = EXCLUDED.verified, updated_at = EXCLUDED.updated_at;")).
			WithArgs(hash, []byte{0xfe}, true, now, now).
			WillReturnResult(sqlmock.NewResult(0, 1))
		if coinBalances {
			mock.ExpectExec(q("INSERT INTO address_coin_balances(address_hash, block_number, inserted_at, updated_at) VALUES ($1, $2, $3, $4) ON CONFLICT DO NOTHING;")).
				WithArgs(hash, int64(0), now, now).
				WillReturnResult(sqlmock.NewResult(0, 1))
		}
		mock.ExpectExec(q("INSERT INTO smart_contracts(name, address_hash, compiler_version, abi, contract_source_code, optimization, inserted_at, updated_at, contract_code_md5, is_changed_bytecode) " +
			"VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) ON CONFLICT (address_hash) DO UPDATE SET compiler_version = EXCLUDED.compiler_version, " +
			"abi = EXCLUDED.abi, contract_source_code = EXCLUDED.contract_source_code, updated_at = EXCLUDED.updated_at, is_changed_bytecode = EXCLUDED.is_changed_bytecode;")).
			WithArgs(e.Name, hash, e.Version, sqlmock.AnyArg(), description, true, now, now, "No MD5", false).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}

	expectTouch := func(e seed.Entry) {
		mock.ExpectExec(q("UPDATE smart_contracts SET is_changed_bytecode = false, updated_at = $2 WHERE address_hash = $1")).
			WithArgs(e.Address.Bytes(), now).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}

	It("installs one entry with a method row per function in declaration order", func() {
		inst := seed.New(app, db, nil, "testdata")

		expectEntry(arbSys, true, "Precompiled contract that exists in every Arbitrum chain at address(100).\nExposes a variety of system-level functionality.")
		expectMethod(-1548635363) // 0xa3b1b31d
		expectMethod(635527267)   // 0x25e16063
		expectMethod(-1836312934) // 0x928c169a
		expectTouch(arbSys)

		n, err := inst.InstallEntry(ctx, arbSys)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(3))
	})

	It("skips the coin balance row when disabled", func() {
		inst := seed.New(app, db, nil, "testdata")
		inst.CoinBalances = false

		expectEntry(gasInfo, false, "Provides insight into the cost of using the chain.")
		expectMethod(1630204280) // 0x612af178
		expectTouch(gasInfo)

		_, err := inst.InstallEntry(ctx, gasInfo)
		Expect(err).NotTo(HaveOccurred())
	})

	It("installs entries in order and sums the methods", func() {
		inst := seed.New(app, db, nil, "testdata")

		expectEntry(arbSys, true, "Precompiled contract that exists in every Arbitrum chain at address(100).\nExposes a variety of system-level functionality.")
		expectMethod(-1548635363)
		expectMethod(635527267)
		expectMethod(-1836312934)
		expectTouch(arbSys)
		expectEntry(gasInfo, true, "Provides insight into the cost of using the chain.")
		expectMethod(1630204280)
		expectTouch(gasInfo)

		sum, err := inst.Install(ctx, []seed.Entry{arbSys, gasInfo})
		Expect(err).NotTo(HaveOccurred())
		Expect(sum).To(Equal(seed.Summary{Contracts: 2, Methods: 4}))
	})

	It("writes withdraw(uint256) under its selector with type ArbOS", func() {
		dir := GinkgoT().TempDir()
		abi := `[{"type":"function","name":"withdraw","inputs":[{"name":"amount","type":"uint256"}],"outputs":[]}]`
		Expect(os.WriteFile(filepath.Join(dir, "ArbSys.abi"), []byte(abi), 0644)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(dir, "ArbSys.txt"), []byte("ArbSys\n"), 0644)).To(Succeed())

		inst := seed.New(app, db, nil, dir)

		expectEntry(arbSys, true, "ArbSys")
		mock.ExpectExec(q("INSERT INTO contract_methods(identifier, abi, type, inserted_at, updated_at)")).
			WithArgs(int64(773487949), `{"type":"function","name":"withdraw","inputs":[{"name":"amount","type":"uint256"}],"outputs":[]}`, "ArbOS", now, now).
			WillReturnResult(sqlmock.NewResult(0, 1))
		expectTouch(arbSys)

		n, err := inst.InstallEntry(ctx, arbSys)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(1))
	})

	It("stops before touching the database when artifacts are missing", func() {
		inst := seed.New(app, db, nil, GinkgoT().TempDir())

		_, err := inst.Install(ctx, []seed.Entry{arbSys})
		Expect(err).To(MatchError(ContainSubstring("failed to install ArbSys")))
	})

	It("aborts on the first failing statement", func() {
		inst := seed.New(app, db, nil, "testdata")

		mock.ExpectExec(q("INSERT INTO addresses(")).WillReturnError(errors.New("connection refused"))

		_, err := inst.Install(ctx, []seed.Entry{arbSys, gasInfo})
		Expect(err).To(MatchError(ContainSubstring("connection refused")))
	})
})
