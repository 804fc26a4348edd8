package engine

// Raw option bits shared by every engine. The values match librandomx's
// randomx_flags so they can be passed through to the C library unchanged.
const (
	FlagDefault     uint32 = 0
	FlagLargePages  uint32 = 1
	FlagHardAES     uint32 = 2
	FlagFullMem     uint32 = 4
	FlagJIT         uint32 = 8
	FlagSecure      uint32 = 16
	FlagArgon2SSSE3 uint32 = 32
	FlagArgon2AVX2  uint32 = 64
	FlagArgon2      uint32 = 96

	// FlagMask covers every recognized bit.
	FlagMask = FlagLargePages | FlagHardAES | FlagFullMem | FlagJIT |
		FlagSecure | FlagArgon2
)
