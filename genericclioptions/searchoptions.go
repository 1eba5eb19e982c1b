package genericclioptions

// SecretFilterOptions defines the common filtering option for CLI
// commands that list secrets by key.
type SecretFilterOptions struct {
	Filter string
}

type Usage int

const (
	_ Usage = iota
	FILTER
)

var usage = map[Usage]string{
	FILTER: "case-insensitive substring filter on the secret key",
}

var _ BaseOptions = &SecretFilterOptions{}

func (*SecretFilterOptions) Usage(field Usage) string {
	if u, ok := usage[field]; ok {
		return u
	}

	return "unknown usage"
}

func (*SecretFilterOptions) Complete() error {
	return nil
}

func (*SecretFilterOptions) Validate() error {
	return nil
}
