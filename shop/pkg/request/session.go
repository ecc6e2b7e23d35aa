package request

import (
	"encoding/json"

	"github.com/rs/zerolog"
)

type SignIn struct {
	Token string `validate:"required,jwt" json:"token"`
}

func (s SignIn) MarshalZerologObject(e *zerolog.Event) {
	e.Str("token", "***")
}

// MarshalJSON masks the token so a logged request never leaks it.
func (s SignIn) MarshalJSON() ([]byte, error) {
	s.Token = "***"
	type S SignIn
	return json.Marshal(S(s))
}
