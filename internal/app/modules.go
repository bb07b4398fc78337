package app

import (
	"github.com/vk/expflowgo/components/code"
	"github.com/vk/expflowgo/components/keyboard"
	"github.com/vk/expflowgo/components/serialout"
	"github.com/vk/expflowgo/components/settings"
	"github.com/vk/expflowgo/components/sound"
	"github.com/vk/expflowgo/components/text"
	"github.com/vk/expflowgo/internal/registry"
)

// coreModules are the component kinds compiled into the binary.
var coreModules = []registry.Module{
	&settings.Module{},
	&text.Module{},
	&keyboard.Module{},
	&sound.Module{},
	&code.Module{},
	&serialout.Module{},
}
