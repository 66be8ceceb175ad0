//go:build windows

package regkey

import (
	"github.com/joshuapare/regkit/store"
	"github.com/joshuapare/regkit/store/winapi"
)

func defaultBackend() store.Backend {
	return winapi.New()
}
