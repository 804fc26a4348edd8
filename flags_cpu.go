package rxgo

import (
	"runtime"

	"github.com/klauspost/cpuid/v2"
)

// RecommendedFlags returns the flags best suited to the host CPU, the way
// randomx_get_flags does: hardware AES and Argon2 acceleration when the CPU
// supports them, and JIT on architectures with a code generator.
//
// FlagFullMem and FlagLargePages are never set; they are deployment choices.
func RecommendedFlags() Flags {
	return recommendedFlags(runtime.GOARCH, cpuid.CPU.Supports)
}

func recommendedFlags(arch string, supports func(...cpuid.FeatureID) bool) Flags {
	f := FlagDefault
	switch arch {
	case "amd64":
		f |= FlagJIT
		if supports(cpuid.AESNI) {
			f |= FlagHardAES
		}
		if supports(cpuid.AVX2) {
			f |= FlagArgon2AVX2
		} else if supports(cpuid.SSSE3) {
			f |= FlagArgon2SSSE3
		}
	case "arm64":
		f |= FlagJIT
		if supports(cpuid.AESARM) {
			f |= FlagHardAES
		}
	}
	return f
}
