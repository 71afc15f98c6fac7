package notion

import (
	"encoding/json"

	"github.com/my-entourage/notion-export/internal/models"
)

// convert re-decodes an API object into a snapshot model through its JSON
// form, which is the shape the snapshot stores.
func convert(src, dst interface{}) error {
	data, err := json.Marshal(src)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}

type apiUser struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
	Person    *struct {
		Email string `json:"email"`
	} `json:"person"`
}

func (u apiUser) model() models.User {
	out := models.User{Name: u.Name, Type: u.Type, AvatarURL: u.AvatarURL}
	if u.Person != nil {
		out.Email = u.Person.Email
	}
	return out
}

// dataSource extracts the id and property schema of an encoded database
func dataSource(database []byte) (json.RawMessage, error) {
	var db struct {
		ID         string          `json:"id"`
		Properties json.RawMessage `json:"properties"`
	}
	if err := json.Unmarshal(database, &db); err != nil {
		return nil, err
	}
	if len(db.Properties) == 0 {
		db.Properties = json.RawMessage(`{}`)
	}
	return json.Marshal(db)
}
