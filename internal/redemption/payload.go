// Package redemption формирует и проверяет код погашения, связывающий предложение
// и пользователя. Код показывается сотруднику ресторана в виде QR и не меняет
// состояние каталога.
package redemption

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
)

const (
	offerPrefix = "OFFER:"
	userPrefix  = "-USER:"
	sigPrefix   = "-SIG:"
	sigLen      = 16

	qrSize = 256
)

// ErrInvalidPayload возвращается для повреждённого или поддельного кода.
var ErrInvalidPayload = errors.New("invalid redemption payload")

// Codec подписывает и разбирает коды погашения.
type Codec struct {
	secret []byte
}

// NewCodec создаёт кодек с указанным секретом подписи.
// При пустом секрете генерируется случайный ключ.
func NewCodec(secret string) *Codec {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		// rand.Read не возвращает ошибку начиная с Go 1.24.
		_, _ = rand.Read(key)
	}
	return &Codec{secret: key}
}

// Encode возвращает код вида OFFER:<offerId>-USER:<userId>-SIG:<подпись>.
func (c *Codec) Encode(offerID uuid.UUID, userID int64) string {
	body := offerPrefix + offerID.String() + userPrefix + strconv.FormatInt(userID, 10)
	return body + sigPrefix + c.sign(body)
}

// Decode проверяет подпись и возвращает идентификаторы предложения и пользователя.
func (c *Codec) Decode(payload string) (uuid.UUID, int64, error) {
	body, sig, ok := strings.Cut(strings.TrimSpace(payload), sigPrefix)
	if !ok || !hmac.Equal([]byte(sig), []byte(c.sign(body))) {
		return uuid.Nil, 0, ErrInvalidPayload
	}

	rest, ok := strings.CutPrefix(body, offerPrefix)
	if !ok {
		return uuid.Nil, 0, ErrInvalidPayload
	}

	offerPart, userPart, ok := strings.Cut(rest, userPrefix)
	if !ok {
		return uuid.Nil, 0, ErrInvalidPayload
	}

	offerID, err := uuid.Parse(offerPart)
	if err != nil {
		return uuid.Nil, 0, fmt.Errorf("%w: offer id: %v", ErrInvalidPayload, err)
	}

	userID, err := strconv.ParseInt(userPart, 10, 64)
	if err != nil {
		return uuid.Nil, 0, fmt.Errorf("%w: user id: %v", ErrInvalidPayload, err)
	}

	return offerID, userID, nil
}

func (c *Codec) sign(body string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(body))
	return hex.EncodeToString(mac.Sum(nil))[:sigLen]
}

// QRCode рендерит код погашения в PNG.
func QRCode(payload string) ([]byte, error) {
	png, err := qrcode.Encode(payload, qrcode.Medium, qrSize)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}
