package ocpi

import (
	"errors"
	"fmt"
	"strings"
)

// Module is a named OCPI resource group.
type Module string

// Modules known to this client.
const (
	ModuleCredentials      Module = "credentials"
	ModuleLocations        Module = "locations"
	ModuleTariffs          Module = "tariffs"
	ModuleSessions         Module = "sessions"
	ModuleCDRs             Module = "cdrs"
	ModuleTokens           Module = "tokens"
	ModuleCommands         Module = "commands"
	ModuleChargingProfiles Module = "chargingprofiles"
	ModuleHubClientInfo    Module = "hubclientinfo"
)

// InterfaceRole tells which side of a module an endpoint implements.
type InterfaceRole string

const (
	// RoleSender is the interface of the party that owns the data.
	RoleSender InterfaceRole = "SENDER"
	// RoleReceiver is the interface of the party that receives pushed data.
	RoleReceiver InterfaceRole = "RECEIVER"
)

// Version is an OCPI protocol version identifier as advertised in version discovery.
type Version string

const (
	V211 Version = "2.1.1"
	V22  Version = "2.2"
	V221 Version = "2.2.1"
)

// ErrUnknownModule is returned when a descriptor names a module this client does not know.
var ErrUnknownModule = errors.New("ocpi: unknown module")

// ErrUnknownRole is returned for interface roles other than SENDER and RECEIVER.
var ErrUnknownRole = errors.New("ocpi: unknown interface role")

var knownModules = map[Module]struct{}{
	ModuleCredentials:      {},
	ModuleLocations:        {},
	ModuleTariffs:          {},
	ModuleSessions:         {},
	ModuleCDRs:             {},
	ModuleTokens:           {},
	ModuleCommands:         {},
	ModuleChargingProfiles: {},
	ModuleHubClientInfo:    {},
}

// ModuleDescriptor identifies a module together with the interface role of the
// remote endpoint. It is used as a lookup key only.
type ModuleDescriptor struct {
	Module Module
	Role   InterfaceRole
}

// Descriptor is shorthand for building a ModuleDescriptor.
func Descriptor(m Module, r InterfaceRole) ModuleDescriptor {
	return ModuleDescriptor{Module: m, Role: r}
}

// String renders the descriptor as "module/ROLE".
func (d ModuleDescriptor) String() string {
	return string(d.Module) + "/" + string(d.Role)
}

// ParseModuleDescriptor parses the "module/ROLE" form produced by String. The
// role part is case-insensitive and defaults to RECEIVER when omitted.
func ParseModuleDescriptor(value string) (ModuleDescriptor, error) {
	value = strings.TrimSpace(value)
	modPart, rolePart, hasRole := strings.Cut(value, "/")

	m := Module(strings.ToLower(strings.TrimSpace(modPart)))
	if _, ok := knownModules[m]; !ok {
		return ModuleDescriptor{}, fmt.Errorf("%w: %q", ErrUnknownModule, modPart)
	}

	role := RoleReceiver
	if hasRole {
		switch InterfaceRole(strings.ToUpper(strings.TrimSpace(rolePart))) {
		case RoleSender:
			role = RoleSender
		case RoleReceiver:
			role = RoleReceiver
		default:
			return ModuleDescriptor{}, fmt.Errorf("%w: %q", ErrUnknownRole, rolePart)
		}
	}
	return ModuleDescriptor{Module: m, Role: role}, nil
}

// ParseVersion normalises a version string, rejecting unknown versions.
func ParseVersion(value string) (Version, error) {
	switch v := Version(strings.TrimSpace(value)); v {
	case V211, V22, V221:
		return v, nil
	default:
		return "", fmt.Errorf("ocpi: unsupported version %q", value)
	}
}

// EncodesTokens reports whether the credentials token must be base64 encoded
// in the Authorization header for this version.
func (v Version) EncodesTokens() bool {
	return v == V22 || v == V221
}
