package vnpay

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/tbourn/go-bookstore-backend/internal/domain"
)

// Gateway timestamp layout (yyyyMMddHHmmss).
const timeLayout = "20060102150405"

// maxOrderInfo is the longest vnp_OrderInfo the gateway accepts.
const maxOrderInfo = 255

// Config carries merchant settings for the gateway.
type Config struct {
	TmnCode     string
	HashSecret  string
	PayURL      string
	ReturnURL   string
	Version     string
	Command     string
	CurrCode    string
	Locale      string
	OrderType   string
	Location    *time.Location // timezone for CreateDate and ExpireDate
	ExpireAfter time.Duration
}

// Client builds redirect URLs and validates callbacks for one merchant.
type Client struct {
	cfg Config
	// Now returns the current time. Tests may replace it.
	Now func() time.Time
}

// ErrInvalidConfig is returned by NewClient for missing merchant settings.
var ErrInvalidConfig = errors.New("vnpay: invalid config")

// NewClient validates cfg and fills defaults for optional fields.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.TmnCode) == "" || cfg.HashSecret == "" {
		return nil, fmt.Errorf("%w: tmn code and hash secret are required", ErrInvalidConfig)
	}
	if _, err := url.Parse(cfg.PayURL); err != nil || cfg.PayURL == "" {
		return nil, fmt.Errorf("%w: pay url %q", ErrInvalidConfig, cfg.PayURL)
	}
	if cfg.Version == "" {
		cfg.Version = "2.1.0"
	}
	if cfg.Command == "" {
		cfg.Command = "pay"
	}
	if cfg.CurrCode == "" {
		cfg.CurrCode = "VND"
	}
	if cfg.Locale == "" {
		cfg.Locale = "vn"
	}
	if cfg.OrderType == "" {
		cfg.OrderType = "other"
	}
	if cfg.Location == nil {
		// Fixed +07:00 when tzdata is unavailable.
		cfg.Location = time.FixedZone("ICT", 7*60*60)
	}
	if cfg.ExpireAfter <= 0 {
		cfg.ExpireAfter = 15 * time.Minute
	}
	return &Client{cfg: cfg, Now: time.Now}, nil
}

// BuildRedirectURL returns the provider URL the shopper is sent to for paying
// amount (VND) against txnRef.
func (c *Client) BuildRedirectURL(amount int64, orderInfo, txnRef, clientIP string) (string, error) {
	if amount <= 0 {
		return "", domain.ErrInvalidAmount
	}
	if strings.TrimSpace(txnRef) == "" {
		return "", errors.New("vnpay: empty transaction reference")
	}
	created := c.Now().In(c.cfg.Location)
	params := map[string]string{
		"vnp_Version":    c.cfg.Version,
		"vnp_Command":    c.cfg.Command,
		"vnp_TmnCode":    c.cfg.TmnCode,
		"vnp_Amount":     strconv.FormatInt(domain.GatewayAmount(amount), 10),
		"vnp_CurrCode":   c.cfg.CurrCode,
		"vnp_TxnRef":     txnRef,
		"vnp_OrderInfo":  SanitizeOrderInfo(orderInfo),
		"vnp_OrderType":  c.cfg.OrderType,
		"vnp_Locale":     c.cfg.Locale,
		"vnp_ReturnUrl":  c.cfg.ReturnURL,
		"vnp_IpAddr":     clientIP,
		"vnp_CreateDate": created.Format(timeLayout),
		"vnp_ExpireDate": created.Add(c.cfg.ExpireAfter).Format(timeLayout),
	}

	query := Canonical(params)
	return c.cfg.PayURL + "?" + query + "&" + FieldSecureHash + "=" + Sign(c.cfg.HashSecret, params), nil
}

// ValidateSignature reports whether params carry a valid merchant signature.
func (c *Client) ValidateSignature(params map[string]string) bool {
	return Verify(c.cfg.HashSecret, params)
}

// ExtractCallbackParams flattens query and form parameters of r into a map,
// keeping the first value of a repeated key. Query values win over body values.
func ExtractCallbackParams(r *http.Request) map[string]string {
	out := map[string]string{}
	take := func(vals url.Values) {
		for k, vs := range vals {
			if _, seen := out[k]; seen || len(vs) == 0 {
				continue
			}
			out[k] = vs[0]
		}
	}
	if r.URL != nil {
		take(r.URL.Query())
	}
	if r.Method == http.MethodPost {
		if err := r.ParseForm(); err == nil {
			take(r.PostForm)
		}
	}
	return out
}

var diacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// SanitizeOrderInfo strips Vietnamese diacritics and control characters and
// clips the result to what the gateway accepts.
func SanitizeOrderInfo(s string) string {
	s = strings.NewReplacer("đ", "d", "Đ", "D").Replace(s)
	if t, _, err := transform.String(diacritics, s); err == nil {
		s = t
	}
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, s)
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > maxOrderInfo {
		s = string(r[:maxOrderInfo])
	}
	return s
}
