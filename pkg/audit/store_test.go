package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestStoreSave(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	store := NewStoreWithDB(db)

	event := SettingsUpdateEvent{
		Actor:    "admin",
		ClientIP: "10.0.0.1",
		Key:      "system.email",
		Scope:    "tenant:school-a",
		Success:  true,
	}

	mock.ExpectExec(`INSERT INTO audit_messages`).
		WithArgs(
			FacilityLocal0,    // facility
			int(SeverityInfo), // severity
			sqlmock.AnyArg(),  // timestamp
			sqlmock.AnyArg(),  // hostname
			AppName,           // appname
			sqlmock.AnyArg(),  // procid
			"settings-update", // msgid
			sqlmock.AnyArg(),  // sdata (JSON)
			"admin updated system.email (tenant:school-a)",
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := store.Save(context.Background(), event); err != nil {
		t.Errorf("Save() error = %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestStoreSaveFailedEvent(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	store := NewStoreWithDB(db)

	event := SettingsFetchFailureEvent{
		Actor:        "anonymous",
		Key:          "payment.gateway",
		Scope:        "tenant:school-b",
		ErrorMessage: "decryption failed",
	}

	mock.ExpectExec(`INSERT INTO audit_messages`).
		WithArgs(
			FacilityAuthPriv,
			int(SeverityError),
			sqlmock.AnyArg(),
			sqlmock.AnyArg(),
			AppName,
			sqlmock.AnyArg(),
			"settings-fetch",
			sqlmock.AnyArg(),
			sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := store.Save(context.Background(), event); err != nil {
		t.Errorf("Save() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestStoreSaveError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`INSERT INTO audit_messages`).WillReturnError(errors.New("relation \"audit_messages\" does not exist"))

	err = NewStoreWithDB(db).Save(context.Background(), TenantEvent{TenantID: "school-a", Operation: "delete"})
	if err == nil {
		t.Error("expected error from Save()")
	}
}

func TestStoreNilDB(t *testing.T) {
	store := &Store{db: nil}

	if err := store.Save(context.Background(), TenantEvent{}); err != nil {
		t.Errorf("Save() with nil db should return nil, got %v", err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("Close() with nil db should return nil, got %v", err)
	}
}

func TestStoreClose(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	mock.ExpectClose()

	store := NewStoreWithDB(db)
	if err := store.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestNewStoreWithoutURL(t *testing.T) {
	t.Setenv("AUDIT_DATABASE_URL", "")
	store, err := NewStore()
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if store != nil {
		t.Error("expected nil store when AUDIT_DATABASE_URL is unset")
	}
}
