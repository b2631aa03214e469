package models

// PublishTarget describes one remote destination that finished assets are mirrored to.
type PublishTarget struct {
	Type           string            `toml:"type" json:"type"`                       // "local", "s3", "gcs" or "sftp"
	CredentialsKey string            `toml:"credentials_key" json:"credentials_key"` // key in the credentials store, optional
	Folder         string            `toml:"folder" json:"folder"`                   // prefix inside the destination
	Settings       map[string]string `toml:"settings" json:"settings,omitempty"`     // static access info merged over stored credentials
}

// OutputSpec is one encoding written for every transformed asset.
type OutputSpec struct {
	Format   string // encoder name
	Quality  int    // 1–100, ignored by lossless encoders
	Speed    int    // encoder speed/efficiency tradeoff
	Lossless bool
}
