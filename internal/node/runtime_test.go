package node_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"math/big"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ethereum/go-ethereum/common"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"patron/internal/model"
	"patron/internal/node"
	"patron/pkg/jwt"
)

var _ = Describe("Runtime ledger", func() {
	var (
		mock   sqlmock.Sqlmock
		mockDb *sql.DB
		err    error

		alice model.Owner
		bob   model.Owner
		mesh  *jwt.JWTService

		newRuntime func(peers map[string]string) *node.Runtime
	)

	BeforeEach(func() {
		mockDb, mock, err = sqlmock.New()
		Expect(err).NotTo(HaveOccurred())

		dialector := postgres.New(postgres.Config{
			Conn:       mockDb,
			DriverName: "postgres",
		})

		gormDB, err := gorm.Open(dialector, &gorm.Config{})
		Expect(err).NotTo(HaveOccurred())

		alice = common.HexToAddress("0x1111111111111111111111111111111111111111")
		bob = common.HexToAddress("0x2222222222222222222222222222222222222222")
		mesh = jwt.NewJWTService([]byte("mesh-secret"))

		newRuntime = func(peers map[string]string) *node.Runtime {
			return node.NewRuntime(zap.NewNop().Sugar(), gormDB, "chainA", peers, mesh)
		}
	})

	AfterEach(func() {
		mock.ExpectClose()
		Expect(mockDb.Close()).To(Succeed())
	})

	selectAccount := func(owner model.Owner) *sqlmock.ExpectedQuery {
		return mock.ExpectQuery(`SELECT \* FROM "account_rows" WHERE owner = \$1 ORDER BY "account_rows"\."owner" LIMIT \$2.*`).
			WithArgs(owner.Hex(), 1)
	}

	upsertAccount := func(owner model.Owner, balance string) {
		mock.ExpectExec(`INSERT INTO "account_rows" \("owner","balance"\) VALUES \(\$1,\$2\) ON CONFLICT \("owner"\) DO UPDATE SET .*`).
			WithArgs(owner.Hex(), balance).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}

	Describe("Credit", func() {
		It("should add to an existing balance", func() {
			mock.ExpectBegin()
			selectAccount(bob).WillReturnRows(sqlmock.NewRows([]string{"owner", "balance"}).
				AddRow(bob.Hex(), "100"))
			upsertAccount(bob, "140")
			mock.ExpectCommit()

			runtime := newRuntime(nil)
			Expect(runtime.Credit(context.Background(), bob, big.NewInt(40))).To(Succeed())
			Expect(mock.ExpectationsWereMet()).To(Succeed())
		})

		It("should open an account on the first credit", func() {
			mock.ExpectBegin()
			selectAccount(bob).WillReturnError(gorm.ErrRecordNotFound)
			upsertAccount(bob, "40")
			mock.ExpectCommit()

			runtime := newRuntime(nil)
			Expect(runtime.Credit(context.Background(), bob, big.NewInt(40))).To(Succeed())
			Expect(mock.ExpectationsWereMet()).To(Succeed())
		})
	})

	Describe("Transfer to a remote account", func() {
		It("should debit locally and post the credit to the peer", func() {
			var got struct {
				Owner  string `json:"owner"`
				Amount string `json:"amount"`
			}
			peer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				Expect(r.Method).To(Equal(http.MethodPost))
				Expect(r.URL.Path).To(Equal("/peer/credits"))
				Expect(r.Header.Get("Authorization")).To(HavePrefix("Bearer "))
				Expect(json.NewDecoder(r.Body).Decode(&got)).To(Succeed())
				w.WriteHeader(http.StatusOK)
			}))
			defer peer.Close()

			mock.ExpectBegin()
			selectAccount(alice).WillReturnRows(sqlmock.NewRows([]string{"owner", "balance"}).
				AddRow(alice.Hex(), "100"))
			upsertAccount(alice, "60")
			mock.ExpectCommit()

			runtime := newRuntime(map[string]string{"chainB": peer.URL})
			to := model.Account{ChainID: "chainB", Owner: bob}
			Expect(runtime.Transfer(context.Background(), alice, to, big.NewInt(40))).To(Succeed())

			Expect(got.Owner).To(Equal(bob.Hex()))
			Expect(got.Amount).To(Equal("40"))
			Expect(mock.ExpectationsWereMet()).To(Succeed())
		})

		It("should roll the debit back when the peer rejects the credit", func() {
			peer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			}))
			defer peer.Close()

			mock.ExpectBegin()
			selectAccount(alice).WillReturnRows(sqlmock.NewRows([]string{"owner", "balance"}).
				AddRow(alice.Hex(), "100"))
			upsertAccount(alice, "60")
			mock.ExpectRollback()

			runtime := newRuntime(map[string]string{"chainB": peer.URL})
			to := model.Account{ChainID: "chainB", Owner: bob}
			err := runtime.Transfer(context.Background(), alice, to, big.NewInt(40))
			Expect(err).To(HaveOccurred())
			Expect(mock.ExpectationsWereMet()).To(Succeed())
		})

		It("should roll back when the destination chain is unknown", func() {
			mock.ExpectBegin()
			selectAccount(alice).WillReturnRows(sqlmock.NewRows([]string{"owner", "balance"}).
				AddRow(alice.Hex(), "100"))
			upsertAccount(alice, "60")
			mock.ExpectRollback()

			runtime := newRuntime(nil)
			to := model.Account{ChainID: "chainZ", Owner: bob}
			err := runtime.Transfer(context.Background(), alice, to, big.NewInt(40))
			Expect(err).To(MatchError(node.ErrUnknownPeer))
			Expect(mock.ExpectationsWereMet()).To(Succeed())
		})
	})
})
