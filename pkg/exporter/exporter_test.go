package exporter_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ethereum/go-ethereum/common"
	"github.com/luxfi/explorer-init/pkg/application"
	"github.com/luxfi/explorer-init/pkg/explorer"
	"github.com/luxfi/explorer-init/pkg/exporter"
	"github.com/luxfi/explorer-init/pkg/metrics"
	"github.com/luxfi/log"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func q(s string) string { return "^" + regexp.QuoteMeta(s) }

var contractColumns = []string{
	"name", "compiler_version", "optimization", "contract_source_code", "abi", "address_hash",
	"constructor_arguments", "optimization_runs", "evm_version", "external_libraries",
	"verified_via_sourcify", "is_vyper_contract", "partially_verified", "file_path",
	"is_changed_bytecode", "bytecode_checked_at", "contract_code_md5", "implementation_name",
	"label_name", "primary", "metadata",
	"contract_code", "verified", "decompiled",
	"file_name", "additional_source",
	"uid", "status",
	"decompiler_version", "decompiled_source_code",
}

var _ = Describe("Exporter", func() {
	var (
		mock   sqlmock.Sqlmock
		exp    *exporter.Exporter
		rec    *metrics.Recorder
		layout explorer.Layout
		ctx    context.Context

		token   = common.HexToAddress("0x00000000000000000000000000000000000000aa")
		arbSys  = common.HexToAddress("0x0000000000000000000000000000000000000064")
		checked = time.Date(2022, 2, 1, 0, 0, 0, 0, time.UTC)
	)

	BeforeEach(func() {
		db, m, err := sqlmock.New()
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { _ = db.Close() })
		mock = m

		app := application.New()
		app.Setup(GinkgoT().TempDir(), log.NewLogger("test"), nil)

		rec, err = metrics.NewRecorder(prometheus.NewRegistry())
		Expect(err).NotTo(HaveOccurred())

		exp = exporter.New(app, db, rec)
		layout = explorer.Layout{Dir: filepath.Join(GinkgoT().TempDir(), "exports")}
		ctx = context.Background()
	})

	AfterEach(func() {
		Expect(mock.ExpectationsWereMet()).To(Succeed())
	})

	expectEmpty := func() {
		mock.ExpectQuery(q(exporter.MigrationsQuery)).WillReturnRows(sqlmock.NewRows([]string{"version"}))
		mock.ExpectQuery(q(exporter.MethodsQuery)).WillReturnRows(sqlmock.NewRows([]string{"identifier", "type", "abi"}))
	}

	It("creates the layout and writes empty arrays for an empty database", func() {
		expectEmpty()
		mock.ExpectQuery(q(exporter.ContractsQuery)).WillReturnRows(sqlmock.NewRows(contractColumns))

		sum, err := exp.Export(ctx, layout)
		Expect(err).NotTo(HaveOccurred())
		Expect(sum).To(Equal(exporter.Summary{}))

		data, err := os.ReadFile(filepath.Join(layout.Dir, explorer.MigrationsFile))
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal("[]\n"))
		Expect(filepath.Join(layout.Dir, explorer.ContractsDir)).To(BeADirectory())
		Expect(testutil.ToFloat64(rec.Files.WithLabelValues("write"))).To(Equal(2.0))
	})

	It("writes migrations and methods as read", func() {
		mock.ExpectQuery(q(exporter.MigrationsQuery)).WillReturnRows(
			sqlmock.NewRows([]string{"version"}).AddRow(int64(20211018170533)).AddRow(int64(20220111085751)))
		mock.ExpectQuery(q(exporter.MethodsQuery)).WillReturnRows(
			sqlmock.NewRows([]string{"identifier", "type", "abi"}).
				AddRow(int64(773487949), "function", []byte(`{"name":"withdraw","type":"function"}`)))
		mock.ExpectQuery(q(exporter.ContractsQuery)).WillReturnRows(sqlmock.NewRows(contractColumns))

		sum, err := exp.Export(ctx, layout)
		Expect(err).NotTo(HaveOccurred())
		Expect(sum.Migrations).To(Equal(2))
		Expect(sum.Methods).To(Equal(1))

		migrations, err := layout.ReadMigrations()
		Expect(err).NotTo(HaveOccurred())
		Expect(migrations).To(Equal([]explorer.Migration{{Version: 20211018170533}, {Version: 20220111085751}}))

		data, err := os.ReadFile(filepath.Join(layout.Dir, explorer.MethodsFile))
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal(`[{"identifier":773487949,"type":"function","abi":{"name":"withdraw","type":"function"}}]` + "\n"))
	})

	It("folds joined rows into one file per contract", func() {
		expectEmpty()
		rows := sqlmock.NewRows(contractColumns).
			AddRow("Token", "v0.8.9+commit.e5eed63a", true, "contract Token {}", []byte(`[]`), token.Bytes(),
				nil, int64(200), "london", "{}",
				nil, false, nil, "contracts/Token.sol",
				false, checked, "5d41402abc4b2a76b9719d911017c592", nil,
				"My Token", true, []byte(`{"tags":["erc20"]}`),
				[]byte{0x60, 0x80}, true, false,
				"Lib.sol", "library Lib {}",
				"uid-1", int64(1),
				nil, nil).
			AddRow("Token", "v0.8.9+commit.e5eed63a", true, "contract Token {}", []byte(`[]`), token.Bytes(),
				nil, int64(200), "london", "{}",
				nil, false, nil, "contracts/Token.sol",
				false, checked, "5d41402abc4b2a76b9719d911017c592", nil,
				"My Token", true, []byte(`{"tags":["erc20"]}`),
				[]byte{0x60, 0x80}, true, false,
				"Math.sol", "library Math {}",
				"uid-1", int64(1),
				nil, nil).
			AddRow("ArbSys", "L2 Precompile (go 1.17)", true, "ArbSys", []byte(`[]`), arbSys.Bytes(),
				nil, nil, nil, nil,
				nil, nil, nil, nil,
				false, nil, "No MD5", nil,
				nil, nil, nil,
				[]byte{0xfe}, true, nil,
				nil, nil,
				nil, nil,
				"v1", "decompiled")
		mock.ExpectQuery(q(exporter.ContractsQuery)).WillReturnRows(rows)

		sum, err := exp.Export(ctx, layout)
		Expect(err).NotTo(HaveOccurred())
		Expect(sum.Contracts).To(Equal(2))
		Expect(sum.Rows).To(Equal(3))
		Expect(filepath.Join(layout.Dir, explorer.ContractsDir, "Token-0x00000000000000000000000000000000000000aa.json")).To(BeAnExistingFile())
		Expect(filepath.Join(layout.Dir, explorer.ContractsDir, "ArbSys-0x0000000000000000000000000000000000000064.json")).To(BeAnExistingFile())

		contracts, err := layout.ReadContracts()
		Expect(err).NotTo(HaveOccurred())
		Expect(contracts).To(HaveLen(2))

		sys, tok := contracts[0], contracts[1]
		Expect(sys.Address).To(Equal(arbSys))
		Expect(sys.Labels).To(BeEmpty())
		Expect(sys.Verifications).To(BeEmpty())
		Expect(sys.AdditionalSources).To(BeEmpty())
		Expect(sys.Decompilations).To(Equal([]explorer.DecompiledSource{{Version: "v1", SourceCode: "decompiled"}}))
		Expect(sys.Code).To(Equal([]byte{0xfe}))

		Expect(tok.Address).To(Equal(token))
		Expect(tok.AdditionalSources).To(Equal([]explorer.AdditionalSource{
			{FileName: "Lib.sol", SourceCode: "library Lib {}"},
			{FileName: "Math.sol", SourceCode: "library Math {}"},
		}))
		Expect(tok.Labels).To(HaveLen(1))
		Expect(tok.Labels[0].Name).To(Equal("My Token"))
		Expect(tok.Labels[0].Primary).To(BeTrue())
		Expect(tok.Verifications).To(Equal([]explorer.VerificationStatus{{UID: "uid-1", Status: 1}}))
		Expect(*tok.OptimizationRuns).To(Equal(int64(200)))
		Expect(tok.BytecodeCheckedAt.Equal(checked)).To(BeTrue())
		Expect(tok.ExternalLibraries).To(BeEmpty())
		Expect(tok.ExternalLibraries).NotTo(BeNil())
		Expect(json.Valid(tok.ABI)).To(BeTrue())
	})

	It("keeps every label, verification and decompilation of one address", func() {
		expectEmpty()
		rows := sqlmock.NewRows(contractColumns).
			AddRow("ArbSys", "L2 Precompile (go 1.17)", true, "ArbSys", []byte(`[]`), arbSys.Bytes(),
				nil, nil, nil, nil,
				nil, nil, nil, nil,
				false, nil, "No MD5", nil,
				"ArbSys", true, nil,
				[]byte{0xfe}, true, true,
				nil, nil,
				"uid-1", int64(1),
				"v1", "decompiled by v1").
			AddRow("ArbSys", "L2 Precompile (go 1.17)", true, "ArbSys", []byte(`[]`), arbSys.Bytes(),
				nil, nil, nil, nil,
				nil, nil, nil, nil,
				false, nil, "No MD5", nil,
				"Arbitrum System", false, []byte(`{"k":1}`),
				[]byte{0xfe}, true, true,
				nil, nil,
				"uid-2", int64(3),
				"v2", "decompiled by v2")
		mock.ExpectQuery(q(exporter.ContractsQuery)).WillReturnRows(rows)

		sum, err := exp.Export(ctx, layout)
		Expect(err).NotTo(HaveOccurred())
		Expect(sum.Contracts).To(Equal(1))
		Expect(sum.Rows).To(Equal(2))

		contracts, err := layout.ReadContracts()
		Expect(err).NotTo(HaveOccurred())
		Expect(contracts).To(HaveLen(1))

		sys := contracts[0]
		Expect(sys.Labels).To(HaveLen(2))
		Expect(sys.Labels[0].Name).To(Equal("ArbSys"))
		Expect(sys.Labels[1].Name).To(Equal("Arbitrum System"))
		Expect(sys.Labels[1].Primary).To(BeFalse())
		Expect(sys.Verifications).To(Equal([]explorer.VerificationStatus{
			{UID: "uid-1", Status: 1},
			{UID: "uid-2", Status: 3},
		}))
		Expect(sys.Decompilations).To(Equal([]explorer.DecompiledSource{
			{Version: "v1", SourceCode: "decompiled by v1"},
			{Version: "v2", SourceCode: "decompiled by v2"},
		}))
	})

	It("rejects rows with a malformed address", func() {
		expectEmpty()
		mock.ExpectQuery(q(exporter.ContractsQuery)).WillReturnRows(
			sqlmock.NewRows(contractColumns).AddRow("Bad", "v", false, "", nil, []byte{0x01},
				nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil,
				nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil))

		_, err := exp.Export(ctx, layout)
		Expect(err).To(MatchError(ContainSubstring("address_hash has 1 bytes")))
	})

	It("fails when a query fails", func() {
		mock.ExpectQuery(q(exporter.MigrationsQuery)).WillReturnError(errors.New("relation does not exist"))

		_, err := exp.Export(ctx, layout)
		Expect(err).To(MatchError(ContainSubstring("failed to query schema_migrations")))
	})
})
