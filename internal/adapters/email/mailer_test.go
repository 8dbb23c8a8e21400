package email

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeSES struct {
	last *ses.SendEmailInput
	err  error
}

func (f *fakeSES) SendEmail(ctx context.Context, in *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	f.last = in
	if f.err != nil {
		return nil, f.err
	}
	return &ses.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestSESMailer_Send(t *testing.T) {
	fake := &fakeSES{}
	m := &sesMailer{client: fake, source: formatSource("Campus Fest", "fest@campus.edu"), logger: testLogger, timeout: time.Second}

	require.NoError(t, m.Send("asha@campus.edu", "Hello", "<p>hi</p>", ""))
	require.NotNil(t, fake.last)
	assert.Equal(t, "Campus Fest <fest@campus.edu>", aws.ToString(fake.last.Source))
	assert.Equal(t, []string{"asha@campus.edu"}, fake.last.Destination.ToAddresses)
	assert.Equal(t, "Hello", aws.ToString(fake.last.Message.Subject.Data))
	require.NotNil(t, fake.last.Message.Body.Html)
	assert.Nil(t, fake.last.Message.Body.Text)
}

func TestSESMailer_Send_error(t *testing.T) {
	fake := &fakeSES{err: errors.New("throttled")}
	m := &sesMailer{client: fake, source: "fest@campus.edu", logger: testLogger, timeout: time.Second}

	err := m.Send("a@b.co", "s", "", "t")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
}

func TestNewMailer_providers(t *testing.T) {
	m, err := NewMailer(MailerConfig{Provider: "noop"}, testLogger)
	require.NoError(t, err)
	assert.IsType(t, &noopMailer{}, m)
	assert.NoError(t, m.Send("a@b.co", "s", "h", "t"))

	m, err = NewMailer(MailerConfig{Provider: "carrier-pigeon"}, testLogger)
	require.NoError(t, err)
	assert.IsType(t, &noopMailer{}, m)

	_, err = NewMailer(MailerConfig{Provider: "ses"}, testLogger)
	assert.Error(t, err)

	m, err = NewMailer(MailerConfig{Provider: "ses", FromAddress: "fest@campus.edu", SES: SESConfig{Region: "ap-south-1"}}, testLogger)
	require.NoError(t, err)
	assert.IsType(t, &sesMailer{}, m)
}
