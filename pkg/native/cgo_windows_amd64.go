//go:build fsuipc_native && windows && amd64

package native

// 64-bit builds link FSUIPC_User64, the 64-bit edition of the vendor
// library. The header is shared with the 32-bit build.

/*
#cgo CFLAGS: -I${SRCDIR}/include
#cgo LDFLAGS: -L${SRCDIR}/lib -lFSUIPC_User64 -ladvapi32 -luser32 -lkernel32 -lole32 -loleaut32 -lgdi32 -lgdiplus -limm32
#include <windows.h>
#include "FSUIPC_User.h"
*/
import "C"
