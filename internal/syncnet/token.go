package syncnet

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenSource yields the bearer token attached to backend submissions.
type TokenSource interface {
	Token() (string, error)
}

// DeviceAuth mints short-lived HS256 tokens from the device credential the
// backend issued at enrollment. Tokens are cached until close to expiry so
// offline periods do not churn signatures.
type DeviceAuth struct {
	deviceID string
	hmac     []byte
	ttl      time.Duration
	now      func() time.Time

	mu     sync.Mutex
	cached string
	expiry time.Time
}

func NewDeviceAuth(deviceID, secret string) *DeviceAuth {
	return &DeviceAuth{
		deviceID: deviceID,
		hmac:     []byte(secret),
		ttl:      time.Hour,
		now:      time.Now,
	}
}

func (d *DeviceAuth) Token() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if d.cached != "" && now.Before(d.expiry.Add(-5*time.Minute)) {
		return d.cached, nil
	}

	exp := now.Add(d.ttl)
	claims := jwt.RegisteredClaims{
		Issuer:    "playerd",
		Subject:   d.deviceID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(d.hmac)
	if err != nil {
		return "", err
	}
	d.cached = signed
	d.expiry = exp
	return signed, nil
}
