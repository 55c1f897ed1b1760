package config

type IdentityConfig interface {
	GetFirebaseAPIKey() string
	GetFirebaseProjectID() string
	GetGoogleClientID() string
	GetGoogleClientSecret() string
}

var _ IdentityConfig = EnvVars{}

func (e EnvVars) GetFirebaseAPIKey() string {
	return e.FirebaseAPIKey
}

func (e EnvVars) GetFirebaseProjectID() string {
	return e.FirebaseProjectID
}

func (e EnvVars) GetGoogleClientID() string {
	return e.GoogleClientID
}

func (e EnvVars) GetGoogleClientSecret() string {
	return e.GoogleClientSecret
}
