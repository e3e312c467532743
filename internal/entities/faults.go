package entities

import (
	"errors"
	"fmt"
)

// FaultKind clasifica los errores de E/S que pueden aparecer en un escaneo.
type FaultKind int

const (
	// RootUnavailable: no se puede listar la raíz. Es fatal.
	RootUnavailable FaultKind = iota + 1
	// EntryUnavailable: un archivo o subdirectorio no se pudo leer. Se omite.
	EntryUnavailable
	// HashFailure: un archivo no se pudo leer completo al calcular su hash.
	HashFailure
)

var (
	ErrRootUnavailable  = errors.New("root unavailable")
	ErrEntryUnavailable = errors.New("entry unavailable")
	ErrHashFailure      = errors.New("hash failure")
)

func (k FaultKind) String() string {
	switch k {
	case RootUnavailable:
		return "RootUnavailable"
	case EntryUnavailable:
		return "EntryUnavailable"
	case HashFailure:
		return "HashFailure"
	default:
		return fmt.Sprintf("FaultKind(%d)", int(k))
	}
}

func (k FaultKind) sentinel() error {
	switch k {
	case RootUnavailable:
		return ErrRootUnavailable
	case EntryUnavailable:
		return ErrEntryUnavailable
	case HashFailure:
		return ErrHashFailure
	default:
		return nil
	}
}

// Fault es un error asociado a una ruta concreta.
// errors.Is funciona tanto con el centinela del tipo como con el error del SO.
type Fault struct {
	Kind FaultKind
	Path string
	Err  error
}

// NewFault crea un Fault.
func NewFault(kind FaultKind, path string, err error) *Fault {
	return &Fault{Kind: kind, Path: path, Err: err}
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%s: %s: %v", f.Kind, f.Path, f.Err)
}

func (f *Fault) Unwrap() []error {
	errs := make([]error, 0, 2)
	if s := f.Kind.sentinel(); s != nil {
		errs = append(errs, s)
	}
	if f.Err != nil {
		errs = append(errs, f.Err)
	}
	return errs
}

// Fatal indica si el fallo debe abortar el escaneo completo.
func (f *Fault) Fatal() bool {
	return f.Kind == RootUnavailable
}
