package app

import (
	"github.com/vk/stagegrid/internal/registry"
	"github.com/vk/stagegrid/modules/detect"
	"github.com/vk/stagegrid/modules/env_vars"
	"github.com/vk/stagegrid/modules/http_client"
	"github.com/vk/stagegrid/modules/print"
	"github.com/vk/stagegrid/modules/s3"
	"github.com/vk/stagegrid/modules/shell"
	"github.com/vk/stagegrid/modules/socketio"
	"github.com/vk/stagegrid/modules/static"
)

// coreModules returns the modules compiled into the stagegrid binary.
func coreModules() []registry.Module {
	return []registry.Module{
		&shell.Module{},
		&print.Module{},
		&http_client.Module{},
		&s3.Module{},
		&socketio.Module{},
		&detect.Module{},
		&env_vars.Module{},
		&static.Module{},
	}
}
