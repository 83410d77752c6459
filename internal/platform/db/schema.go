package db

import (
	"context"
	"database/sql"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS books (
		book_id          BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		title            VARCHAR(255) NOT NULL,
		author           VARCHAR(255) NOT NULL,
		isbn             VARCHAR(32)  NOT NULL,
		category         VARCHAR(100) NULL,
		description      VARCHAR(1000) NULL,
		copies_available INT NOT NULL,
		copies_total     INT NOT NULL,
		created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (book_id),
		UNIQUE KEY uq_books_isbn (isbn)
	)`,
	`CREATE TABLE IF NOT EXISTS patrons (
		patron_id   BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		name        VARCHAR(255) NOT NULL,
		email       VARCHAR(255) NOT NULL,
		phone       VARCHAR(20)  NULL,
		address     VARCHAR(500) NULL,
		patron_type VARCHAR(50)  NOT NULL,
		active      TINYINT(1)   NOT NULL DEFAULT 1,
		loan_limit  INT          NOT NULL DEFAULT 5,
		created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (patron_id),
		UNIQUE KEY uq_patrons_email (email)
	)`,
	`CREATE TABLE IF NOT EXISTS loans (
		loan_id     BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		loan_ulid   CHAR(26) NOT NULL,
		book_id     BIGINT UNSIGNED NOT NULL,
		patron_id   BIGINT UNSIGNED NOT NULL,
		loan_date   DATE NOT NULL,
		due_date    DATE NOT NULL,
		return_date DATE NULL,
		status      VARCHAR(20) NOT NULL,
		notes       VARCHAR(500) NULL,
		renewals    INT NOT NULL DEFAULT 0,
		created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (loan_id),
		UNIQUE KEY uq_loans_ulid (loan_ulid),
		KEY ix_loans_status_due (status, due_date),
		KEY ix_loans_patron (patron_id, status),
		KEY ix_loans_book (book_id),
		KEY ix_loans_loan_date (loan_date),
		CONSTRAINT fk_loans_book FOREIGN KEY (book_id) REFERENCES books (book_id),
		CONSTRAINT fk_loans_patron FOREIGN KEY (patron_id) REFERENCES patrons (patron_id)
	)`,
}

// Migrate creates the tables if they do not exist yet.
func Migrate(ctx context.Context, conn *sql.DB) error {
	for _, stmt := range schema {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
