package messenger

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleEvent = `{"object":"page","entry":[{"id":"1","messaging":[{"message":{"text":"hi"}}]}]}`

type fakeSNS struct {
	inputs []*sns.PublishInput
	err    error
}

func (f *fakeSNS) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{MessageId: aws.String("m-1")}, nil
}

type fakeS3 struct {
	keys   []string
	bodies []string
	err    error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	b, _ := io.ReadAll(in.Body)
	f.keys = append(f.keys, aws.ToString(in.Key))
	f.bodies = append(f.bodies, string(b))
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func sign(secret, body string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestVerify(t *testing.T) {
	w := NewWebhook(Options{VerifyToken: "svario-secret"}, nil, nil, nil, nil)

	challenge, ok := w.Verify("subscribe", "svario-secret", "12345")
	assert.True(t, ok)
	assert.Equal(t, "12345", challenge)

	_, ok = w.Verify("subscribe", "wrong", "12345")
	assert.False(t, ok)

	_, ok = w.Verify("unsubscribe", "svario-secret", "12345")
	assert.False(t, ok)

	_, ok = w.Verify("subscribe", "", "12345")
	assert.False(t, ok)
}

func TestValidSignature(t *testing.T) {
	body := []byte(sampleEvent)
	good := sign("appsecret", sampleEvent)

	assert.True(t, ValidSignature(body, "appsecret", good))
	assert.False(t, ValidSignature(body, "other", good))
	assert.False(t, ValidSignature(body, "appsecret", strings.TrimPrefix(good, "sha256=")))
	assert.False(t, ValidSignature(body, "appsecret", "sha256=zz"))
	assert.False(t, ValidSignature(body, "appsecret", "sha256="))
	assert.False(t, ValidSignature(body, "", good))
	assert.False(t, ValidSignature([]byte(sampleEvent+" "), "appsecret", good))
}

func TestHandleEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("no secret accepts unsigned", func(t *testing.T) {
		w := NewWebhook(Options{}, nil, nil, nil, nil)
		assert.NoError(t, w.HandleEvent(ctx, []byte(sampleEvent), ""))
	})

	t.Run("bad json", func(t *testing.T) {
		w := NewWebhook(Options{}, nil, nil, nil, nil)
		err := w.HandleEvent(ctx, []byte("{nope"), "")
		assert.ErrorIs(t, err, ErrBadPayload)
	})

	t.Run("signature required when secret set", func(t *testing.T) {
		w := NewWebhook(Options{AppSecret: "appsecret"}, nil, nil, nil, nil)
		assert.ErrorIs(t, w.HandleEvent(ctx, []byte(sampleEvent), ""), ErrBadSignature)
		assert.ErrorIs(t, w.HandleEvent(ctx, []byte(sampleEvent), sign("other", sampleEvent)), ErrBadSignature)
		assert.NoError(t, w.HandleEvent(ctx, []byte(sampleEvent), sign("appsecret", sampleEvent)))
	})

	t.Run("relays to sns and s3", func(t *testing.T) {
		pub := &fakeSNS{}
		arc := &fakeS3{}
		w := NewWebhook(Options{TopicARN: "arn:aws:sns:us-east-1:1:messenger", ArchiveBucket: "events"}, pub, arc, nil, nil)
		w.now = func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) }

		require.NoError(t, w.HandleEvent(ctx, []byte(sampleEvent), ""))

		require.Len(t, pub.inputs, 1)
		assert.Equal(t, sampleEvent, aws.ToString(pub.inputs[0].Message))
		assert.Equal(t, "page", aws.ToString(pub.inputs[0].MessageAttributes["object"].StringValue))

		require.Len(t, arc.keys, 1)
		assert.True(t, strings.HasPrefix(arc.keys[0], "messenger/dt=2024-05-01/"))
		assert.True(t, strings.HasSuffix(arc.keys[0], ".json"))
		assert.Equal(t, sampleEvent, arc.bodies[0])
	})

	t.Run("relay failure does not fail delivery", func(t *testing.T) {
		pub := &fakeSNS{err: errors.New("throttled")}
		arc := &fakeS3{err: errors.New("denied")}
		w := NewWebhook(Options{TopicARN: "arn", ArchiveBucket: "events"}, pub, arc, nil, nil)
		assert.NoError(t, w.HandleEvent(ctx, []byte(sampleEvent), ""))
		assert.Len(t, pub.inputs, 1)
		assert.Len(t, arc.keys, 1)
	})

	t.Run("unconfigured relays are skipped", func(t *testing.T) {
		pub := &fakeSNS{}
		arc := &fakeS3{}
		w := NewWebhook(Options{}, pub, arc, nil, nil)
		require.NoError(t, w.HandleEvent(ctx, []byte(sampleEvent), ""))
		assert.Empty(t, pub.inputs)
		assert.Empty(t, arc.keys)
	})
}
