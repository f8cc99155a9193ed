package settings

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/jubileehq/jubilee-backend/internal/audit"
	"github.com/jubileehq/jubilee-backend/pkg/enums"
	pkgerrors "github.com/jubileehq/jubilee-backend/pkg/errors"
)

func setupSettingsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, conn.Exec(`
CREATE TABLE IF NOT EXISTS payment_settings (
  id TEXT PRIMARY KEY,
  bank_name TEXT,
  account_name TEXT,
  account_number TEXT,
  gateway_enabled INTEGER NOT NULL DEFAULT 1,
  bank_transfer_enabled INTEGER NOT NULL DEFAULT 1,
  virtual_acct_enabled INTEGER NOT NULL DEFAULT 0,
  updated_by TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`).Error)
	return conn
}

type recordingAudit struct {
	entries []audit.Entry
}

func (r *recordingAudit) Record(_ context.Context, entry audit.Entry) error {
	r.entries = append(r.entries, entry)
	return nil
}

func (r *recordingAudit) RecordTx(_ context.Context, _ *gorm.DB, entry audit.Entry) error {
	r.entries = append(r.entries, entry)
	return nil
}

func (r *recordingAudit) List(context.Context, audit.ListParams) (*audit.ListResult, error) {
	return &audit.ListResult{}, nil
}

func newSettingsService(t *testing.T) (Service, *recordingAudit) {
	t.Helper()
	conn := setupSettingsTestDB(t)
	auditSvc := &recordingAudit{}
	svc, err := NewService(NewRepository(conn), auditSvc)
	require.NoError(t, err)
	return svc, auditSvc
}

func boolptr(b bool) *bool    { return &b }
func strptr(s string) *string { return &s }

func TestFindCreatesDefaultRow(t *testing.T) {
	svc, _ := newSettingsService(t)

	settings, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.True(t, settings.GatewayEnabled)
	assert.True(t, settings.BankTransferEnabled)
	assert.False(t, settings.VirtualAcctEnabled)

	again, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, settings.ID, again.ID, "repeat reads must return the same row")
}

func TestUpdateIsAuditedAndPartial(t *testing.T) {
	svc, auditSvc := newSettingsService(t)
	actor := Actor{ID: uuid.New(), Role: enums.UserRoleAdmin}

	updated, err := svc.Update(context.Background(), actor, UpdateRequest{
		BankName:      strptr("GTBank"),
		AccountName:   strptr("Jubilee Ltd"),
		AccountNumber: strptr("0123456789"),
	})
	require.NoError(t, err)
	require.NotNil(t, updated.BankName)
	assert.Equal(t, "GTBank", *updated.BankName)
	assert.True(t, updated.GatewayEnabled, "toggles not in the request stay untouched")
	require.NotNil(t, updated.UpdatedBy)
	assert.Equal(t, actor.ID, *updated.UpdatedBy)

	require.Len(t, auditSvc.entries, 1)
	assert.Equal(t, enums.AuditActionSettingsUpdated, auditSvc.entries[0].Action)
}

func TestUpdateRejectsDisablingEveryMethod(t *testing.T) {
	svc, _ := newSettingsService(t)
	actor := Actor{ID: uuid.New(), Role: enums.UserRoleSuperAdmin}

	_, err := svc.Update(context.Background(), actor, UpdateRequest{
		GatewayEnabled:      boolptr(false),
		BankTransferEnabled: boolptr(false),
		VirtualAcctEnabled:  boolptr(false),
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestUpdateRejectsBankTransferWithoutDetails(t *testing.T) {
	svc, _ := newSettingsService(t)
	actor := Actor{ID: uuid.New(), Role: enums.UserRoleAdmin}

	_, err := svc.Update(context.Background(), actor, UpdateRequest{
		BankTransferEnabled: boolptr(true),
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestUpdateRequiresStaff(t *testing.T) {
	svc, _ := newSettingsService(t)

	_, err := svc.Update(context.Background(), Actor{ID: uuid.New(), Role: enums.UserRoleCustomer}, UpdateRequest{})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())
}

func TestPublicHidesBankDetailsWhenTransferDisabled(t *testing.T) {
	svc, _ := newSettingsService(t)
	actor := Actor{ID: uuid.New(), Role: enums.UserRoleAdmin}

	_, err := svc.Update(context.Background(), actor, UpdateRequest{
		BankName:            strptr("GTBank"),
		AccountName:         strptr("Jubilee Ltd"),
		AccountNumber:       strptr("0123456789"),
		BankTransferEnabled: boolptr(false),
	})
	require.NoError(t, err)

	public, err := svc.Public(context.Background())
	require.NoError(t, err)
	assert.False(t, public.BankTransferEnabled)
	assert.Nil(t, public.BankName)
	assert.Nil(t, public.AccountNumber)
}
