//go:build !windows

package regkey

import (
	"github.com/joshuapare/regkit/store"
	"github.com/joshuapare/regkit/store/memstore"
)

func defaultBackend() store.Backend {
	return memstore.MustNew(nil)
}
