package messenger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blastkit/blast/pkg/models"
)

type fakeAdapter struct {
	network models.NetworkType
	session *models.Session

	sentText  []string
	sentMedia []string
}

func (f *fakeAdapter) Network() models.NetworkType { return f.network }

func (f *fakeAdapter) SetSession(session *models.Session) error {
	if session != nil && session.SessionType != f.network {
		return models.Validationf("session network %q does not match adapter %q", session.SessionType, f.network)
	}
	f.session = session
	return nil
}

func (f *fakeAdapter) SendText(_ context.Context, contact models.Contact, text string) error {
	if f.session == nil {
		return ErrNoSession
	}
	f.sentText = append(f.sentText, text)
	return nil
}

func (f *fakeAdapter) SendMedia(_ context.Context, contact models.Contact, text string, file *models.File) error {
	if f.session == nil {
		return ErrNoSession
	}
	f.sentMedia = append(f.sentMedia, file.Name)
	return nil
}

// otpAdapter looks like the account-session network: OTP plus 2FA auth and
// every contact identifier.
type otpAdapter struct{ fakeAdapter }

func (a *otpAdapter) LoginOTP(context.Context, string) (string, string, error) {
	return "session", "code-hash", nil
}

func (a *otpAdapter) ValidateOTP(context.Context, string, string, string) (string, bool, error) {
	return "session", true, nil
}

func (a *otpAdapter) TwoFactorAuthenticate(context.Context, string) (string, error) {
	return "session", nil
}

func (a *otpAdapter) TargetsPhoneNumber() {}
func (a *otpAdapter) TargetsUsername()    {}
func (a *otpAdapter) TargetsUserID()      {}

// qrAdapter looks like the QR network: QR auth, phone numbers only.
type qrAdapter struct{ fakeAdapter }

func (a *qrAdapter) LoginQR(context.Context, string) (string, error) { return "qr-payload", nil }
func (a *qrAdapter) TargetsPhoneNumber()                             {}

func newTestRegistry() (*Registry, *otpAdapter, *qrAdapter) {
	tg := &otpAdapter{fakeAdapter{network: models.NetworkTelegram}}
	wa := &qrAdapter{fakeAdapter{network: models.NetworkWhatsapp}}

	r := NewRegistry()
	r.Register(tg)
	r.Register(wa)
	return r, tg, wa
}

func TestDescribe(t *testing.T) {
	t.Run("otp adapter", func(t *testing.T) {
		d := Describe(&otpAdapter{fakeAdapter{network: models.NetworkTelegram}})

		assert.Equal(t, models.NetworkTelegram, d.Network)
		assert.Equal(t, "Telegram", d.DisplayName)
		assert.Equal(t, []Feature{FeatureSendText, FeatureSendMedia}, d.Features)
		assert.Equal(t, []AuthMethod{AuthOTP, Auth2FAPassword}, d.AuthMethods)
		assert.Equal(t,
			[]ContactIdentifier{ContactPhoneNumber, ContactUsername, ContactUserID},
			d.ContactIdentifiers)
	})

	t.Run("qr adapter", func(t *testing.T) {
		d := Describe(&qrAdapter{fakeAdapter{network: models.NetworkWhatsapp}})

		assert.Equal(t, "WhatsApp", d.DisplayName)
		assert.Equal(t, []Feature{FeatureSendText, FeatureSendMedia}, d.Features)
		assert.Equal(t, []AuthMethod{AuthQR}, d.AuthMethods)
		assert.Equal(t, []ContactIdentifier{ContactPhoneNumber}, d.ContactIdentifiers)
	})
}

func TestRegistryGet(t *testing.T) {
	r, tg, _ := newTestRegistry()

	m, err := r.Get(models.NetworkTelegram)
	require.NoError(t, err)
	assert.Same(t, Messenger(tg), m)

	_, err = r.Get(models.NetworkType("carrier_pigeon"))
	assert.ErrorContains(t, err, "no messenger registered")
}

func TestRegistryDuplicatePanics(t *testing.T) {
	r, _, _ := newTestRegistry()

	assert.Panics(t, func() {
		r.Register(&qrAdapter{fakeAdapter{network: models.NetworkWhatsapp}})
	})
}

func TestRegistryForSession(t *testing.T) {
	r, tg, _ := newTestRegistry()

	str := "blob"
	session := &models.Session{
		ID:          1,
		SessionType: models.NetworkTelegram,
		SessionStr:  &str,
	}

	m, err := r.ForSession(session)
	require.NoError(t, err)
	assert.Same(t, Messenger(tg), m)
	assert.Same(t, session, tg.session)

	_, err = r.ForSession(nil)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSendRouting(t *testing.T) {
	f := &fakeAdapter{network: models.NetworkWhatsapp}
	require.NoError(t, f.SetSession(&models.Session{SessionType: models.NetworkWhatsapp}))

	contact := models.Contact{PhoneNumber: "+15550001111"}

	require.NoError(t, Send(context.Background(), f, contact, "hi", nil))
	require.NoError(t, Send(context.Background(), f, contact, "hi", &models.File{Name: "pic.png"}))

	assert.Equal(t, []string{"hi"}, f.sentText)
	assert.Equal(t, []string{"pic.png"}, f.sentMedia)
}

func TestDescribeAllOrder(t *testing.T) {
	r, _, _ := newTestRegistry()

	all := r.DescribeAll()
	require.Len(t, all, 2)
	assert.Equal(t, models.NetworkTelegram, all[0].Network)
	assert.Equal(t, models.NetworkWhatsapp, all[1].Network)
}
