package provider

import (
	"fmt"

	"github.com/hazyhaar/ggsync/internal/config"
)

// FromVariant constructs the concrete Provider for the active config
// variant. Called fresh on every engine operation rather than cached, so
// a save-config that swaps the variant takes effect on the next sync
// without requiring a process restart.
func FromVariant(v config.ProviderVariant) (Provider, error) {
	switch v.Type {
	case config.VariantFolder:
		return NewFolder(v.SyncDir), nil
	case config.VariantHosted:
		return NewHosted(v.APIURL, v.APIKey), nil
	default:
		return nil, fmt.Errorf("provider: unsupported variant %q", v.Type)
	}
}
