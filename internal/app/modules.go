package app

import (
	"github.com/specialistvlad/buildgrid/internal/toolchain"
	"github.com/specialistvlad/buildgrid/modules/exec_command"
	"github.com/specialistvlad/buildgrid/modules/file_ops"
	"github.com/specialistvlad/buildgrid/modules/http_transfer"
	"github.com/specialistvlad/buildgrid/modules/lifecycle"
)

// coreModules is the definitive list of all action modules that are compiled
// into the buildgrid binary.
var coreModules = []toolchain.Module{
	&lifecycle.Module{},
	&exec_command.Module{},
	&file_ops.Module{},
	&http_transfer.Module{},
}
