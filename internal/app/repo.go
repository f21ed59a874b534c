package app

import (
	"github.com/mandalnilabja/drawgate/internal/transport/http/handler/admin"
	"github.com/mandalnilabja/drawgate/internal/transport/http/handler/generate"
	"github.com/mandalnilabja/drawgate/internal/transport/http/handler/images"
	"github.com/mandalnilabja/drawgate/internal/transport/http/handler/infra"
)

// Repo groups the handler sets mounted by the router. Images is nil unless
// the deployment delivers keys.
type Repo struct {
	Generate *generate.Handlers
	Images   *images.Handlers
	Admin    *admin.Handlers
	Infra    *infra.Handlers
}
