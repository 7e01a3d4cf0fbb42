package demoserver

// resource is an upstream payload with several versions. Switching versions
// between two captures gives the body diff endpoint something to show.
type resource struct {
	Path        string
	Description string
	ContentType string
	Versions    map[int]string
}

func allResources() []resource {
	return []resource{
		{
			Path:        "/api/profile",
			Description: "User profile; v2 renames a field, v3 adds roles",
			ContentType: "application/json",
			Versions: map[int]string{
				1: `{
  "id": 42,
  "name": "Ada",
  "email": "ada@example.com"
}
`,
				2: `{
  "id": 42,
  "display_name": "Ada",
  "email": "ada@example.com"
}
`,
				3: `{
  "id": 42,
  "display_name": "Ada",
  "email": "ada@example.com",
  "roles": ["admin", "editor"]
}
`,
			},
		},
		{
			Path:        "/api/feed",
			Description: "Plain text feed that grows one line per version",
			ContentType: "text/plain; charset=utf-8",
			Versions: map[int]string{
				1: "post 1\n",
				2: "post 1\npost 2\n",
			},
		},
	}
}
