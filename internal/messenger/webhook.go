package messenger

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"svario/internal/logger"
	"svario/internal/metrics"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/google/uuid"
)

var (
	ErrBadSignature = errors.New("invalid signature")
	ErrBadPayload   = errors.New("invalid json payload")
)

const signaturePrefix = "sha256="

type Publisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type Options struct {
	VerifyToken   string
	AppSecret     string
	TopicARN      string
	ArchiveBucket string
}

// Webhook handles the Messenger subscription handshake and event deliveries.
// Events are logged; when a topic or bucket is configured they are also
// relayed as-is. Relay failures are logged and do not fail the delivery.
type Webhook struct {
	opts    Options
	pub     Publisher
	archive ObjectPutter
	log     logger.Sugared
	metrics *metrics.RelayMetrics
	now     func() time.Time
}

func NewWebhook(opts Options, pub Publisher, archive ObjectPutter, log logger.Sugared, m *metrics.RelayMetrics) *Webhook {
	if log == nil {
		log = logger.Nop()
	}
	if m == nil {
		m = metrics.Noop()
	}
	return &Webhook{opts: opts, pub: pub, archive: archive, log: log, metrics: m, now: time.Now}
}

// Verify answers the hub.* handshake. It returns the challenge to echo and
// whether the subscription is accepted.
func (w *Webhook) Verify(mode, token, challenge string) (string, bool) {
	if mode == "subscribe" && token != "" && hmac.Equal([]byte(token), []byte(w.opts.VerifyToken)) {
		w.metrics.MessengerEvents.WithLabelValues("verify", "ok").Inc()
		w.log.Infow("messenger webhook verified")
		return challenge, true
	}
	w.metrics.MessengerEvents.WithLabelValues("verify", "rejected").Inc()
	w.log.Warnw("messenger webhook verification failed", "mode", mode)
	return "", false
}

type payload struct {
	Object string `json:"object"`
	Entry  []struct {
		ID        string            `json:"id"`
		Messaging []json.RawMessage `json:"messaging"`
	} `json:"entry"`
}

// HandleEvent checks and logs one delivery. signature is the raw
// X-Hub-Signature-256 header; it is only checked when an app secret is set.
func (w *Webhook) HandleEvent(ctx context.Context, body []byte, signature string) error {
	if w.opts.AppSecret != "" && !ValidSignature(body, w.opts.AppSecret, signature) {
		w.metrics.MessengerEvents.WithLabelValues("event", "bad_signature").Inc()
		w.log.Warnw("messenger event rejected", "err", ErrBadSignature)
		return ErrBadSignature
	}

	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		w.metrics.MessengerEvents.WithLabelValues("event", "bad_payload").Inc()
		w.log.Warnw("messenger event rejected", "err", err)
		return fmt.Errorf("%w: %v", ErrBadPayload, err)
	}

	messages := 0
	for _, e := range p.Entry {
		messages += len(e.Messaging)
	}
	w.log.Infow("messenger event received",
		"object", p.Object,
		"entries", len(p.Entry),
		"messages", messages,
		"payload", string(body),
	)

	w.relay(ctx, p.Object, body)
	w.metrics.MessengerEvents.WithLabelValues("event", "ok").Inc()
	return nil
}

func (w *Webhook) relay(ctx context.Context, object string, body []byte) {
	if w.pub != nil && w.opts.TopicARN != "" {
		if object == "" {
			object = "unknown"
		}
		_, err := w.pub.Publish(ctx, &sns.PublishInput{
			TopicArn: aws.String(w.opts.TopicARN),
			Message:  aws.String(string(body)),
			MessageAttributes: map[string]snstypes.MessageAttributeValue{
				"object": {DataType: aws.String("String"), StringValue: aws.String(object)},
			},
		})
		if err != nil {
			w.metrics.MessengerEvents.WithLabelValues("relay", "error").Inc()
			w.log.Errorw("messenger sns publish failed", "topic", w.opts.TopicARN, "err", err)
		}
	}

	if w.archive != nil && w.opts.ArchiveBucket != "" {
		key := archiveKey(w.now().UTC())
		_, err := w.archive.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(w.opts.ArchiveBucket),
			Key:         aws.String(key),
			Body:        strings.NewReader(string(body)),
			ContentType: aws.String("application/json"),
		})
		if err != nil {
			w.metrics.MessengerEvents.WithLabelValues("archive", "error").Inc()
			w.log.Errorw("messenger archive failed", "bucket", w.opts.ArchiveBucket, "key", key, "err", err)
		}
	}
}

func archiveKey(t time.Time) string {
	return fmt.Sprintf("messenger/dt=%s/%s.json", t.Format("2006-01-02"), uuid.NewString())
}

// ValidSignature checks an X-Hub-Signature-256 header ("sha256=<hex>")
// against the HMAC-SHA256 of body under secret.
func ValidSignature(body []byte, secret, header string) bool {
	if secret == "" || !strings.HasPrefix(header, signaturePrefix) {
		return false
	}
	got, err := hex.DecodeString(strings.TrimPrefix(header, signaturePrefix))
	if err != nil || len(got) == 0 {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}
