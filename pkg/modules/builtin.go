package modules

// RegisterBuiltins adds the modules shipped with the worker binary to the
// registry.
func RegisterBuiltins(r *Registry) error {
	builtins := []struct {
		namespace string
		name      string
		factory   Factory
	}{
		{"shellcmd", "ShellCommand", NewShellCommand},
		{"iperf", "IperfClient", NewIperfClient},
		{"tcpdump", "Tcpdump", NewTcpdump},
	}
	for _, b := range builtins {
		if err := r.Register(b.namespace, b.name, b.factory); err != nil {
			return err
		}
	}
	return nil
}
