package policy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/onboarding-server/internal/model"
)

func TestDomain_Check(t *testing.T) {
	d := New(File{Blocked: []string{"competitor.io"}})

	tests := []struct {
		name    string
		email   string
		want    string
		wantErr error
	}{
		{name: "business domain", email: "Alice@NewCo.com", want: "alice@newco.com"},
		{name: "free mail", email: "alice@gmail.com", wantErr: model.ErrDomainNotAllowed},
		{name: "blocked", email: "spy@competitor.io", wantErr: model.ErrDomainNotAllowed},
		{name: "blocked subdomain", email: "spy@eu.competitor.io", wantErr: model.ErrDomainNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := d.Check(tt.email)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDomain_Check_Malformed(t *testing.T) {
	_, err := New(File{}).Check("not-an-email")

	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "email", verr.Field)
}

func TestDomain_Check_AllowList(t *testing.T) {
	d := New(File{Allowed: []string{"acme.com"}})

	_, err := d.Check("bob@eu.acme.com")
	assert.NoError(t, err)

	_, err = d.Check("bob@other.com")
	assert.ErrorIs(t, err, model.ErrDomainNotAllowed)
}

func TestDomain_Check_AllowFreeMail(t *testing.T) {
	_, err := New(File{AllowFreeMail: true}).Check("alice@gmail.com")
	assert.NoError(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("allowed:\n  - newco.com\nblocked: []\n"), 0o600))

	d, err := Load(path)
	require.NoError(t, err)

	_, err = d.Check("alice@newco.com")
	assert.NoError(t, err)
	_, err = d.Check("alice@acme.com")
	assert.ErrorIs(t, err, model.ErrDomainNotAllowed)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("allowed: [\n"), 0o600))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestLoad_Default(t *testing.T) {
	d, err := Load("")
	require.NoError(t, err)

	_, err = d.Check("x@outlook.com")
	assert.ErrorIs(t, err, model.ErrDomainNotAllowed)
	assert.Contains(t, FreeMailDomains(), "gmail.com")
}
