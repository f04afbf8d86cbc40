package users

// Profile carries the musician-facing fields of an account.
type Profile struct {
	Instruments     string `json:"instruments,omitempty"`
	Genres          string `json:"genres,omitempty"`
	SkillLevel      string `json:"skill_level,omitempty"`
	Bio             string `json:"bio,omitempty"`
	Location        string `json:"location,omitempty"`
	AvatarURL       string `json:"avatar_url,omitempty"`
	InstagramHandle string `json:"instagram_handle,omitempty"`
	TiktokHandle    string `json:"tiktok_handle,omitempty"`
}

// User is the profile record returned by /users/me/. The SDK treats it as
// opaque session identity; it never derives authorization decisions from it.
type User struct {
	ID       int64    `json:"id"`
	Username string   `json:"username"`
	Email    string   `json:"email,omitempty"`
	Avatar   string   `json:"avatar,omitempty"`
	Profile  *Profile `json:"profile,omitempty"`
}

// ProfileUpdate is a partial profile mutation for PATCH /users/me/. Nil
// fields are omitted from the payload and left untouched server-side.
type ProfileUpdate struct {
	Instruments     *string `json:"instruments,omitempty"`
	Genres          *string `json:"genres,omitempty"`
	SkillLevel      *string `json:"skill_level,omitempty"`
	Bio             *string `json:"bio,omitempty"`
	Location        *string `json:"location,omitempty"`
	InstagramHandle *string `json:"instagram_handle,omitempty"`
	TiktokHandle    *string `json:"tiktok_handle,omitempty"`
}
