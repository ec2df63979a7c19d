package response

// ErrCode identifies an API failure. Clients branch on the code, never on
// the message.
type ErrCode string

// Session and token failures.
const (
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrTokenExpired       ErrCode = "TOKEN_EXPIRED"
)

// Capability checks.
const (
	ErrForbidden        ErrCode = "FORBIDDEN"
	ErrPermissionDenied ErrCode = "PERMISSION_DENIED"
)

// Request and resource failures.
const (
	ErrValidation       ErrCode = "VALIDATION_ERROR"
	ErrInvalidID        ErrCode = "INVALID_ID"
	ErrNotFound         ErrCode = "NOT_FOUND"
	ErrConflict         ErrCode = "CONFLICT"
	ErrDependencyExists ErrCode = "DEPENDENCY_EXISTS"
	ErrActionForbidden  ErrCode = "ACTION_FORBIDDEN"
)

// Stock movements.
const (
	ErrInsufficientStock        ErrCode = "INSUFFICIENT_STOCK"
	ErrReturnExceedsOutstanding ErrCode = "RETURN_EXCEEDS_OUTSTANDING"
)

// Spreadsheet uploads.
const (
	ErrFileRequired    ErrCode = "FILE_REQUIRED"
	ErrUnsupportedFile ErrCode = "UNSUPPORTED_FILE_TYPE"
	ErrFileTooLarge    ErrCode = "FILE_TOO_LARGE"
	ErrImportFailed    ErrCode = "IMPORT_FAILED"
)

const (
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"
	ErrInternal          ErrCode = "INTERNAL_ERROR"
)

var messages = map[ErrCode]string{
	ErrInvalidCredentials: "Nama pengguna atau kata sandi salah.",
	ErrSessionInvalidated: "Sesi tidak lagi aktif. Silakan masuk kembali.",
	ErrTokenRequired:      "Permintaan ini memerlukan token.",
	ErrTokenInvalid:       "Token tidak dapat diverifikasi.",
	ErrTokenExpired:       "Token sudah kedaluwarsa.",

	ErrForbidden:        "Peran Anda tidak dapat mengakses halaman ini.",
	ErrPermissionDenied: "Hak akses untuk fitur ini belum diberikan.",

	ErrValidation:       "Beberapa isian tidak valid.",
	ErrInvalidID:        "ID harus berupa bilangan bulat positif.",
	ErrNotFound:         "Data tidak ditemukan.",
	ErrConflict:         "Kode atau nama pengguna sudah dipakai.",
	ErrDependencyExists: "Data masih dipakai oleh data lain dan tidak dapat dihapus.",
	ErrActionForbidden:  "Tindakan ini tidak diperbolehkan.",

	ErrInsufficientStock:        "Stok alat yang tersedia tidak mencukupi.",
	ErrReturnExceedsOutstanding: "Jumlah kembali melebihi jumlah alat yang masih dipinjam.",

	ErrFileRequired:    "Sertakan file pada isian \"file\".",
	ErrUnsupportedFile: "Hanya file .xlsx yang diterima.",
	ErrFileTooLarge:    "Ukuran file melebihi batas unggah.",
	ErrImportFailed:    "File tidak dapat dibaca sebagai lembar kerja.",

	ErrRateLimitExceeded: "Terlalu banyak percobaan. Coba lagi sebentar lagi.",
	ErrInternal:          "Terjadi kesalahan pada server.",
}

// GetMessage returns the human-readable message for code.
func GetMessage(code ErrCode) string {
	if msg, ok := messages[code]; ok {
		return msg
	}
	return "Terjadi kesalahan yang tidak terduga."
}
