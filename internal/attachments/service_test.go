package attachments_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/kamalsharma29/crm-dashboard/internal/api/validation"
	"github.com/kamalsharma29/crm-dashboard/internal/attachments"
	"github.com/kamalsharma29/crm-dashboard/internal/database/models"
	"github.com/kamalsharma29/crm-dashboard/internal/testutil"
	"github.com/kamalsharma29/crm-dashboard/pkg/config"
	"github.com/kamalsharma29/crm-dashboard/pkg/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T, tc *testutil.TestSetup) (*attachments.Service, *attachments.MemoryStorage) {
	t.Helper()

	enc, err := crypto.NewEncryptor("")
	require.NoError(t, err)

	store := attachments.NewMemoryStorage()
	rules := validation.UploadRules{MaxSize: 64, AllowedTypes: []string{"pdf", "png", "txt"}}
	return attachments.NewService(tc.DB, store, enc, rules, testutil.Logger()), store
}

func upload(name, body string) attachments.Upload {
	return attachments.Upload{
		FileName:    name,
		ContentType: "text/plain",
		Size:        int64(len(body)),
		Body:        strings.NewReader(body),
	}
}

func TestService_UploadAndDownload(t *testing.T) {
	tc := testutil.NewTestContext(t)
	svc, store := newService(t, tc)
	ctx := testutil.TestContext(t)
	lead := testutil.CreateTestLead(t, tc.DB, tc.Employee)
	owner := testutil.PrincipalFor(tc.Employee)

	att, err := svc.Upload(ctx, owner, lead.ID, upload("../../notes.txt", "call back friday"))
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", att.FileName)
	assert.Equal(t, int64(16), att.Size)
	assert.Equal(t, tc.Employee.ID, att.UploadedBy)
	assert.Equal(t, 1, store.Len())

	sealed, err := store.Get(ctx, att.StorageKey)
	require.NoError(t, err)
	assert.False(t, bytes.Contains(sealed, []byte("call back friday")), "blob must be encrypted at rest")

	got, data, err := svc.Download(ctx, owner, lead.ID, att.ID)
	require.NoError(t, err)
	assert.Equal(t, att.ID, got.ID)
	assert.Equal(t, "call back friday", string(data))

	list, err := svc.List(ctx, testutil.PrincipalFor(tc.Admin), lead.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestService_UploadRules(t *testing.T) {
	tc := testutil.NewTestContext(t)
	svc, store := newService(t, tc)
	ctx := testutil.TestContext(t)
	lead := testutil.CreateTestLead(t, tc.DB, tc.Employee)
	owner := testutil.PrincipalFor(tc.Employee)

	_, err := svc.Upload(ctx, owner, lead.ID, upload("run.exe", "MZ"))
	assert.ErrorIs(t, err, validation.ErrFileTypeBlocked)

	_, err = svc.Upload(ctx, owner, lead.ID, upload("big.txt", strings.Repeat("x", 65)))
	assert.ErrorIs(t, err, validation.ErrFileTooLarge)

	// Declared size lies; the body is still measured.
	lying := upload("big.txt", strings.Repeat("x", 100))
	lying.Size = 10
	_, err = svc.Upload(ctx, owner, lead.ID, lying)
	assert.ErrorIs(t, err, validation.ErrFileTooLarge)

	_, err = svc.Upload(ctx, owner, lead.ID, upload("empty.txt", ""))
	assert.ErrorIs(t, err, validation.ErrEmptyFile)

	assert.Equal(t, 0, store.Len())
}

func TestService_Scoping(t *testing.T) {
	tc := testutil.NewTestContext(t)
	svc, _ := newService(t, tc)
	ctx := testutil.TestContext(t)
	adminLead := testutil.CreateTestLead(t, tc.DB, tc.Admin)
	employee := testutil.PrincipalFor(tc.Employee)
	manager := testutil.PrincipalFor(testutil.CreateTestUser(t, tc.DB, models.RoleManager, "Manager"))

	att, err := svc.Upload(ctx, testutil.PrincipalFor(tc.Admin), adminLead.ID, upload("deck.pdf", "%PDF-1.4"))
	require.NoError(t, err)

	_, err = svc.List(ctx, employee, adminLead.ID)
	assert.ErrorIs(t, err, attachments.ErrLeadNotFound)

	_, _, err = svc.Download(ctx, employee, adminLead.ID, att.ID)
	assert.ErrorIs(t, err, attachments.ErrLeadNotFound)

	_, err = svc.Upload(ctx, employee, adminLead.ID, upload("x.txt", "x"))
	assert.ErrorIs(t, err, attachments.ErrLeadNotFound)

	// Managers read every lead but only write their own.
	_, _, err = svc.Download(ctx, manager, adminLead.ID, att.ID)
	assert.NoError(t, err)
	err = svc.Delete(ctx, manager, adminLead.ID, att.ID)
	assert.ErrorIs(t, err, attachments.ErrLeadNotFound)
}

func TestService_Delete(t *testing.T) {
	tc := testutil.NewTestContext(t)
	svc, store := newService(t, tc)
	ctx := testutil.TestContext(t)
	lead := testutil.CreateTestLead(t, tc.DB, tc.Employee)
	owner := testutil.PrincipalFor(tc.Employee)

	att, err := svc.Upload(ctx, owner, lead.ID, upload("a.txt", "abc"))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, owner, lead.ID, att.ID))
	assert.Equal(t, 0, store.Len())

	_, _, err = svc.Download(ctx, owner, lead.ID, att.ID)
	assert.ErrorIs(t, err, attachments.ErrNotFound)

	err = svc.Delete(ctx, owner, lead.ID, uuid.New())
	assert.ErrorIs(t, err, attachments.ErrNotFound)
}

func TestService_Disabled(t *testing.T) {
	tc := testutil.NewTestContext(t)
	enc, err := crypto.NewEncryptor("")
	require.NoError(t, err)
	svc := attachments.NewService(tc.DB, nil, enc, validation.UploadRules{MaxSize: 10, AllowedTypes: []string{"txt"}}, testutil.Logger())
	lead := testutil.CreateTestLead(t, tc.DB, tc.Employee)

	_, err = svc.Upload(testutil.TestContext(t), testutil.PrincipalFor(tc.Employee), lead.ID, upload("a.txt", "a"))
	assert.ErrorIs(t, err, attachments.ErrDisabled)
}

func TestNewStorage(t *testing.T) {
	ctx := testutil.TestContext(t)

	store, err := attachments.NewStorage(ctx, configFor("memory"))
	require.NoError(t, err)
	assert.IsType(t, &attachments.MemoryStorage{}, store)

	store, err = attachments.NewStorage(ctx, configFor("none"))
	require.NoError(t, err)
	assert.Nil(t, store)

	_, err = attachments.NewStorage(ctx, configFor("ftp"))
	assert.Error(t, err)

	_, err = attachments.NewStorage(ctx, configFor("s3"))
	assert.Error(t, err, "s3 without a bucket")
}

func configFor(backend string) config.StorageConfig {
	return config.StorageConfig{Backend: backend, Region: "us-east-1"}
}
