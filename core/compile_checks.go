package core

import glog "github.com/goliatone/go-logger/glog"

var (
	_ CredentialStore = (*MemoryCredentialStore)(nil)
	_ Signer          = BearerSigner{}
	_ Signer          = SignerFunc(nil)
	_ Transport       = TransportFunc(nil)
	_ SessionHook     = sessionHookFunc{}
	_ ConfigProvider  = (*CfgxConfigProvider)(nil)
	_ OptionsResolver = GoOptionsResolver{}
	_ error           = (*NormalizedError)(nil)
	_ error           = (*ResponseError)(nil)

	_ Logger         = glog.Nop()
	_ LoggerProvider = glog.ProviderFromLogger(glog.Nop())
)
