package endpoints

import (
	"github.com/doodlesbykumbi/tenant-settings/pkg/server"
)

// RegisterAll registers all API endpoints on the server
func RegisterAll(srv *server.Server) {
	RegisterStatusEndpoints(srv)
	RegisterSettingsEndpoints(srv)
	RegisterReferencesEndpoints(srv)
	RegisterTenantsEndpoints(srv)
}
