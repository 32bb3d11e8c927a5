package orders

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/speps/go-hashids/v2"
)

const orderNumberAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// OrderNumberGenerator produces customer-facing order numbers that do not
// leak sequential ids.
type OrderNumberGenerator struct {
	hd *hashids.HashID
}

func NewOrderNumberGenerator(salt string) (*OrderNumberGenerator, error) {
	data := hashids.NewData()
	data.Salt = salt
	data.MinLength = 6
	data.Alphabet = orderNumberAlphabet

	hd, err := hashids.NewWithData(data)
	if err != nil {
		return nil, fmt.Errorf("order number generator: %w", err)
	}
	return &OrderNumberGenerator{hd: hd}, nil
}

// Generate returns ORD-<hashid of user and time>-<4 random chars>.
func (g *OrderNumberGenerator) Generate(userID int64) string {
	nonce := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:4])

	tag, err := g.hd.EncodeInt64([]int64{userID, time.Now().UnixMilli()})
	if err != nil {
		// Only negative numbers fail to encode.
		tag = strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	}
	return fmt.Sprintf("ORD-%s-%s", tag, nonce)
}
