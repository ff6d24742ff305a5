package app

import (
	"github.com/vk/mountgrid/internal/loader"
	"github.com/vk/mountgrid/modules/banner"
	"github.com/vk/mountgrid/modules/iframe"
)

// coreModules is the definitive list of local applications compiled into
// the mountgrid binary.
var coreModules = []loader.Module{
	&banner.Module{},
	&iframe.Module{},
}
