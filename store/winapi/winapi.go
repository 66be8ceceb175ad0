//go:build windows

// Package winapi is the store.Backend for the real Windows registry. Plain
// calls go through advapi32; transacted variants need ktmw32 and the
// Reg*Transacted entry points, which are resolved lazily so their absence
// surfaces as ERROR_CALL_NOT_IMPLEMENTED instead of a load failure.
package winapi

import (
	"errors"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/joshuapare/regkit/internal/format"
	"github.com/joshuapare/regkit/pkg/types"
	"github.com/joshuapare/regkit/store"
)

var (
	modadvapi32 = windows.NewLazySystemDLL("advapi32.dll")
	modktmw32   = windows.NewLazySystemDLL("ktmw32.dll")

	procRegCreateKeyExW         = modadvapi32.NewProc("RegCreateKeyExW")
	procRegCreateKeyTransactedW = modadvapi32.NewProc("RegCreateKeyTransactedW")
	procRegOpenKeyTransactedW   = modadvapi32.NewProc("RegOpenKeyTransactedW")
	procRegDeleteKeyW           = modadvapi32.NewProc("RegDeleteKeyW")
	procRegDeleteKeyTransactedW = modadvapi32.NewProc("RegDeleteKeyTransactedW")
	procRegEnumValueW           = modadvapi32.NewProc("RegEnumValueW")
	procRegSetValueExW          = modadvapi32.NewProc("RegSetValueExW")
	procRegDeleteValueW         = modadvapi32.NewProc("RegDeleteValueW")
	procCreateTransaction       = modktmw32.NewProc("CreateTransaction")
	procCommitTransaction       = modktmw32.NewProc("CommitTransaction")
	procRollbackTransaction     = modktmw32.NewProc("RollbackTransaction")
)

const regOptionNonVolatile = 0

// Backend calls the native registry. The zero value is ready to use.
type Backend struct{}

var _ store.Backend = Backend{}

// New returns the native backend.
func New() Backend { return Backend{} }

// errno converts a registry LSTATUS or a syscall error into types.Errno.
func errno(err error) error {
	if err == nil {
		return nil
	}
	var en syscall.Errno
	if errors.As(err, &en) {
		if en == 0 {
			return nil
		}
		return types.Errno(uint32(en))
	}
	return err
}

func status(r1 uintptr) error {
	if r1 == 0 {
		return nil
	}
	return types.Errno(uint32(r1))
}

// callTx invokes an optional proc, reporting a missing export as
// ERROR_CALL_NOT_IMPLEMENTED.
func callTx(p *windows.LazyProc, args ...uintptr) (uintptr, error) {
	if err := p.Find(); err != nil {
		return 0, types.ERROR_CALL_NOT_IMPLEMENTED
	}
	r1, _, _ := p.Call(args...)
	return r1, nil
}

func utf16Ptr(s string) (*uint16, error) {
	p, err := windows.UTF16PtrFromString(s)
	if err != nil {
		return nil, types.ERROR_INVALID_NAME
	}
	return p, nil
}

func (Backend) OpenKey(parent store.Handle, path string, access types.Access, tx store.TxHandle) (store.Handle, error) {
	sub, err := utf16Ptr(path)
	if err != nil {
		return 0, err
	}
	var out windows.Handle
	if tx == store.NoTx {
		err := windows.RegOpenKeyEx(windows.Handle(parent), sub, 0, uint32(access), &out)
		return store.Handle(out), errno(err)
	}
	r1, err := callTx(procRegOpenKeyTransactedW,
		uintptr(parent), uintptr(unsafe.Pointer(sub)), 0, uintptr(access),
		uintptr(unsafe.Pointer(&out)), uintptr(tx), 0)
	if err != nil {
		return 0, err
	}
	return store.Handle(out), status(r1)
}

func (Backend) CreateKey(parent store.Handle, path string, access types.Access, tx store.TxHandle) (store.Handle, types.Disposition, error) {
	sub, err := utf16Ptr(path)
	if err != nil {
		return 0, 0, err
	}
	var out windows.Handle
	var disp uint32
	var r1 uintptr
	if tx == store.NoTx {
		r1, _, _ = procRegCreateKeyExW.Call(
			uintptr(parent), uintptr(unsafe.Pointer(sub)), 0, 0, regOptionNonVolatile,
			uintptr(access), 0, uintptr(unsafe.Pointer(&out)), uintptr(unsafe.Pointer(&disp)))
	} else {
		r1, err = callTx(procRegCreateKeyTransactedW,
			uintptr(parent), uintptr(unsafe.Pointer(sub)), 0, 0, regOptionNonVolatile,
			uintptr(access), 0, uintptr(unsafe.Pointer(&out)), uintptr(unsafe.Pointer(&disp)),
			uintptr(tx), 0)
		if err != nil {
			return 0, 0, err
		}
	}
	if err := status(r1); err != nil {
		return 0, 0, err
	}
	return store.Handle(out), types.Disposition(disp), nil
}

func (Backend) CloseKey(h store.Handle) error {
	if store.IsPredef(h) {
		return nil
	}
	return errno(windows.RegCloseKey(windows.Handle(h)))
}

func (Backend) DeleteKey(parent store.Handle, path string, tx store.TxHandle) error {
	if path == "" {
		return types.ERROR_INVALID_PARAMETER
	}
	sub, err := utf16Ptr(path)
	if err != nil {
		return err
	}
	if tx == store.NoTx {
		r1, _, _ := procRegDeleteKeyW.Call(uintptr(parent), uintptr(unsafe.Pointer(sub)))
		return status(r1)
	}
	r1, err := callTx(procRegDeleteKeyTransactedW,
		uintptr(parent), uintptr(unsafe.Pointer(sub)), 0, 0, uintptr(tx), 0)
	if err != nil {
		return err
	}
	return status(r1)
}

func (Backend) EnumKey(h store.Handle, index uint32) (string, error) {
	buf := make([]uint16, types.MaxKeyNameLen+1)
	n := uint32(len(buf))
	err := windows.RegEnumKeyEx(windows.Handle(h), index, &buf[0], &n, nil, nil, nil, nil)
	if err := errno(err); err != nil {
		return "", err
	}
	return windows.UTF16ToString(buf[:n]), nil
}

func (b Backend) EnumValue(h store.Handle, index uint32) (string, types.RegValue, error) {
	md, err := b.QueryInfo(h)
	if err != nil {
		return "", types.RegValue{}, err
	}
	name := make([]uint16, md.MaxValueNameLen+1)
	data := make([]byte, max(md.MaxValueLen, 1))
	for {
		nameLen := uint32(len(name))
		dataLen := uint32(len(data))
		var typ uint32
		r1, _, _ := procRegEnumValueW.Call(
			uintptr(h), uintptr(index),
			uintptr(unsafe.Pointer(&name[0])), uintptr(unsafe.Pointer(&nameLen)), 0,
			uintptr(unsafe.Pointer(&typ)),
			uintptr(unsafe.Pointer(&data[0])), uintptr(unsafe.Pointer(&dataLen)))
		err := status(r1)
		if errors.Is(err, types.ERROR_MORE_DATA) {
			// the value grew between QueryInfo and the read
			name = make([]uint16, max(2*len(name), types.MaxValueNameLen+1))
			data = make([]byte, max(2*len(data), int(dataLen)))
			continue
		}
		if err != nil {
			return "", types.RegValue{}, err
		}
		v := types.RegValue{Bytes: append([]byte(nil), data[:dataLen]...), Type: types.RegType(typ)}
		return windows.UTF16ToString(name[:nameLen]), v, nil
	}
}

func (Backend) QueryValue(h store.Handle, name string) (types.RegValue, error) {
	pname, err := utf16Ptr(name)
	if err != nil {
		return types.RegValue{}, err
	}
	var typ, n uint32
	if err := errno(windows.RegQueryValueEx(windows.Handle(h), pname, nil, &typ, nil, &n)); err != nil {
		return types.RegValue{}, err
	}
	for {
		buf := make([]byte, max(n, 1))
		err := errno(windows.RegQueryValueEx(windows.Handle(h), pname, nil, &typ, &buf[0], &n))
		if errors.Is(err, types.ERROR_MORE_DATA) {
			continue // n now holds the new size
		}
		if err != nil {
			return types.RegValue{}, err
		}
		return types.RegValue{Bytes: buf[:n], Type: types.RegType(typ)}, nil
	}
}

func (Backend) SetValue(h store.Handle, name string, v types.RegValue) error {
	pname, err := utf16Ptr(name)
	if err != nil {
		return err
	}
	var data uintptr
	if len(v.Bytes) > 0 {
		data = uintptr(unsafe.Pointer(&v.Bytes[0]))
	}
	r1, _, _ := procRegSetValueExW.Call(
		uintptr(h), uintptr(unsafe.Pointer(pname)), 0, uintptr(v.Type), data, uintptr(len(v.Bytes)))
	return status(r1)
}

func (Backend) DeleteValue(h store.Handle, name string) error {
	pname, err := utf16Ptr(name)
	if err != nil {
		return err
	}
	r1, _, _ := procRegDeleteValueW.Call(uintptr(h), uintptr(unsafe.Pointer(pname)))
	return status(r1)
}

func (Backend) QueryInfo(h store.Handle) (types.KeyMetadata, error) {
	var md types.KeyMetadata
	var ft windows.Filetime
	err := windows.RegQueryInfoKey(windows.Handle(h), nil, nil, nil,
		&md.SubKeys, &md.MaxSubKeyLen, &md.MaxClassLen,
		&md.Values, &md.MaxValueNameLen, &md.MaxValueLen,
		nil, &ft)
	if err := errno(err); err != nil {
		return types.KeyMetadata{}, err
	}
	md.LastWrite = format.FiletimeToTime(format.JoinFiletime(ft.LowDateTime, ft.HighDateTime))
	return md, nil
}

func (Backend) BeginTx() (store.TxHandle, error) {
	if err := procCreateTransaction.Find(); err != nil {
		return store.NoTx, types.ERROR_CALL_NOT_IMPLEMENTED
	}
	r1, _, e1 := procCreateTransaction.Call(0, 0, 0, 0, 0, 0, 0)
	if windows.Handle(r1) == windows.InvalidHandle {
		if err := errno(e1); err != nil {
			return store.NoTx, err
		}
		return store.NoTx, types.ERROR_INVALID_TRANSACTION
	}
	return store.TxHandle(r1), nil
}

func (Backend) CommitTx(tx store.TxHandle) error {
	return boolCall(procCommitTransaction, uintptr(tx))
}

func (Backend) RollbackTx(tx store.TxHandle) error {
	return boolCall(procRollbackTransaction, uintptr(tx))
}

func (Backend) CloseTx(tx store.TxHandle) error {
	return errno(windows.CloseHandle(windows.Handle(tx)))
}

func boolCall(p *windows.LazyProc, args ...uintptr) error {
	if err := p.Find(); err != nil {
		return types.ERROR_CALL_NOT_IMPLEMENTED
	}
	r1, _, e1 := p.Call(args...)
	if r1 != 0 {
		return nil
	}
	if err := errno(e1); err != nil {
		return err
	}
	return types.ERROR_TRANSACTION_NOT_ACTIVE
}
