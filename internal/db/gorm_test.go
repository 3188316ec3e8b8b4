package db_test

import (
	"context"
	"database/sql"

	"patron/internal/db"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var _ = Describe("PostgresKV", func() {
	var (
		mock   sqlmock.Sqlmock
		mockDb *sql.DB
		err    error
		kv     *db.PostgresKV
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

		kv = db.NewGormKV(gormDB)
	})

	AfterEach(func() {
		mock.ExpectClose()
		Expect(mockDb.Close()).To(Succeed())
	})

	Describe("Get", func() {
		When("the key exists", func() {
			BeforeEach(func() {
				mock.ExpectQuery(`SELECT \* FROM "entries" WHERE key = \$1 ORDER BY "entries"\."key" LIMIT \$2.*`).
					WithArgs("profile/0xab", 1).
					WillReturnRows(sqlmock.NewRows([]string{"key", "value"}).
						AddRow("profile/0xab", []byte(`{"name":"alice"}`)))
			})

			It("should return the stored value", func() {
				value, err := kv.Get(context.Background(), "profile/0xab")
				Expect(err).NotTo(HaveOccurred())
				Expect(value).To(Equal([]byte(`{"name":"alice"}`)))
				Expect(mock.ExpectationsWereMet()).To(Succeed())
			})
		})

		When("the key is missing", func() {
			BeforeEach(func() {
				mock.ExpectQuery(`SELECT \* FROM "entries" WHERE key = \$1 ORDER BY "entries"\."key" LIMIT \$2.*`).
					WithArgs("profile/0xcd", 1).
					WillReturnError(gorm.ErrRecordNotFound)
			})

			It("should return ErrNotFound", func() {
				_, err := kv.Get(context.Background(), "profile/0xcd")
				Expect(err).To(MatchError(db.ErrNotFound))
				Expect(mock.ExpectationsWereMet()).To(Succeed())
			})
		})
	})

	Describe("Put", func() {
		BeforeEach(func() {
			mock.ExpectBegin()

			mock.ExpectExec(`^INSERT INTO "entries" \("key","value"\) VALUES \(\$1,\$2\) ON CONFLICT \("key"\) DO UPDATE SET .*$`).
				WithArgs("profile/0xab", []byte(`{"name":"alice"}`)).
				WillReturnResult(sqlmock.NewResult(0, 1))

			mock.ExpectCommit()
		})

		It("should upsert the entry", func() {
			err := kv.Put(context.Background(), "profile/0xab", []byte(`{"name":"alice"}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(mock.ExpectationsWereMet()).To(Succeed())
		})
	})

	Describe("Delete", func() {
		BeforeEach(func() {
			mock.ExpectBegin()

			mock.ExpectExec(`^DELETE FROM "entries" WHERE key = \$1$`).
				WithArgs("profile/0xab").
				WillReturnResult(sqlmock.NewResult(0, 1))

			mock.ExpectCommit()
		})

		It("should remove the entry", func() {
			err := kv.Delete(context.Background(), "profile/0xab")
			Expect(err).NotTo(HaveOccurred())
			Expect(mock.ExpectationsWereMet()).To(Succeed())
		})
	})
})
