//go:build fsuipc_native && windows && 386

package native

// 32-bit builds link the vendor static library FSUIPC_User.lib (or
// libFSUIPC_User.a for MinGW) from ./lib, with its header in ./include.

/*
#cgo CFLAGS: -I${SRCDIR}/include
#cgo LDFLAGS: -L${SRCDIR}/lib -lFSUIPC_User -ladvapi32 -luser32 -lkernel32 -lole32 -loleaut32 -lgdi32 -lgdiplus -limm32
#include <windows.h>
#include "FSUIPC_User.h"
*/
import "C"
