package user

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"net/url"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
)

// errors
var (
	ErrInvalidInitData = errors.New("invalid telegram init data")
)

// telegramUser is the `user` field of a Telegram WebApp initData payload.
type telegramUser struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	PhotoURL  string `json:"photo_url"`
}

func (tu telegramUser) user() User {
	name := strings.TrimSpace(tu.FirstName + " " + tu.LastName)
	if name == "" {
		name = tu.Username
	}
	return User{
		TelegramID: null.Int64From(tu.ID),
		Name:       name,
		AvatarURL:  null.NewString(tu.PhotoURL, tu.PhotoURL != ""),
		Role:       RoleStudent,
	}
}

// verifyInitData checks the HMAC signature of a Telegram WebApp initData
// string against the bot token and extracts the embedded user.
// https://core.telegram.org/bots/webapps#validating-data-received-via-the-mini-app
func verifyInitData(initData, botToken string, skipSignatureCheck bool) (telegramUser, error) {
	vals, err := url.ParseQuery(initData)
	if err != nil {
		return telegramUser{}, ErrInvalidInitData
	}

	if !skipSignatureCheck {
		hash := vals.Get("hash")
		if hash == "" {
			return telegramUser{}, ErrInvalidInitData
		}
		if subtle.ConstantTimeCompare([]byte(signInitData(vals, botToken)), []byte(hash)) == 0 {
			return telegramUser{}, ErrInvalidInitData
		}
	}

	usrStr := vals.Get("user")
	if usrStr == "" {
		return telegramUser{}, ErrInvalidInitData
	}
	var tgUsr telegramUser
	if err = json.Unmarshal([]byte(usrStr), &tgUsr); err != nil || tgUsr.ID == 0 {
		return telegramUser{}, ErrInvalidInitData
	}
	return tgUsr, nil
}

// signInitData computes the expected initData hash: all fields but `hash`
// sorted as "key=value" lines, HMAC-SHA256'd with a key derived from the bot token.
func signInitData(vals url.Values, botToken string) string {
	keys := make([]string, 0, len(vals))
	for k := range vals {
		if k != "hash" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+vals.Get(k))
	}
	dataCheckString := strings.Join(lines, "\n")

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))

	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(dataCheckString))
	return hex.EncodeToString(mac.Sum(nil))
}
