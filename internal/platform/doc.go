// Package platform abstracts the remote video hosting services packages
// are published to. Providers are resolved by the package's platform type
// through a registry; a package without a type halts at the upload
// boundary instead of resolving a provider.
package platform
