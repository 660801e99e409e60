package registry

import (
	"github.com/dukex/stepflow/pkg/executors/clipboard"
	"github.com/dukex/stepflow/pkg/executors/condition"
	"github.com/dukex/stepflow/pkg/executors/delay"
	"github.com/dukex/stepflow/pkg/executors/email"
	"github.com/dukex/stepflow/pkg/executors/externalautomation"
	"github.com/dukex/stepflow/pkg/executors/getvariable"
	"github.com/dukex/stepflow/pkg/executors/group"
	"github.com/dukex/stepflow/pkg/executors/httprequest"
	"github.com/dukex/stepflow/pkg/executors/jsonparser"
	"github.com/dukex/stepflow/pkg/executors/location"
	"github.com/dukex/stepflow/pkg/executors/loop"
	"github.com/dukex/stepflow/pkg/executors/mathops"
	"github.com/dukex/stepflow/pkg/executors/menuselection"
	"github.com/dukex/stepflow/pkg/executors/notification"
	"github.com/dukex/stepflow/pkg/executors/openurl"
	"github.com/dukex/stepflow/pkg/executors/promptinput"
	"github.com/dukex/stepflow/pkg/executors/random"
	"github.com/dukex/stepflow/pkg/executors/sharetext"
	"github.com/dukex/stepflow/pkg/executors/sms"
	"github.com/dukex/stepflow/pkg/executors/textops"
	"github.com/dukex/stepflow/pkg/executors/texttospeech"
	"github.com/dukex/stepflow/pkg/executors/variable"
	"github.com/dukex/stepflow/pkg/executors/webhook"
	"github.com/dukex/stepflow/pkg/protocol"
)

// BuiltinDeps carries the platform collaborators the capability-backed
// executors need. Nil fields are allowed; the corresponding executors then
// fail at execute time with an "unavailable" error instead of at registration.
type BuiltinDeps struct {
	Notifier      protocol.Notifier
	Composer      protocol.MessageComposer
	Clipboard     protocol.Clipboard
	Location      protocol.LocationProvider
	URLLauncher   protocol.URLLauncher
	Speech        protocol.SpeechSynthesizer
	ShareSheet    protocol.ShareSheet
	Interaction   protocol.UserInteraction
	Fetcher       protocol.AutomationFetcher
	RunnerFactory protocol.RunnerFactory
}

// RegisterBuiltins registers every built-in step type on the registry.
func RegisterBuiltins(r *Registry, deps BuiltinDeps) {
	r.RegisterExecutor(variable.NewFactory())
	r.RegisterExecutor(getvariable.NewFactory())
	r.RegisterExecutor(condition.NewFactory())
	r.RegisterExecutor(mathops.NewFactory())
	r.RegisterExecutor(textops.NewFactory())
	r.RegisterExecutor(random.NewFactory())
	r.RegisterExecutor(jsonparser.NewFactory())
	r.RegisterExecutor(delay.NewFactory())
	r.RegisterExecutor(loop.NewFactory())
	r.RegisterExecutor(group.NewFactory())
	r.RegisterExecutor(httprequest.NewFactory())
	r.RegisterExecutor(webhook.NewFactory())

	r.RegisterExecutor(notification.NewFactory(deps.Notifier))
	r.RegisterExecutor(sms.NewFactory(deps.Composer))
	r.RegisterExecutor(email.NewFactory(deps.Composer))
	r.RegisterExecutor(clipboard.NewFactory(deps.Clipboard))
	r.RegisterExecutor(location.NewFactory(deps.Location))
	r.RegisterExecutor(openurl.NewFactory(deps.URLLauncher))
	r.RegisterExecutor(sharetext.NewFactory(deps.ShareSheet))
	r.RegisterExecutor(texttospeech.NewFactory(deps.Speech))
	r.RegisterExecutor(promptinput.NewFactory(deps.Interaction))
	r.RegisterExecutor(menuselection.NewFactory(deps.Interaction))
	r.RegisterExecutor(externalautomation.NewFactory(deps.Fetcher, deps.RunnerFactory))
}
