package letterconfig

import "github.com/poltekatipdg/sipbmn-backend/pkg/db/models"

// Defaults returns the letterhead used until an admin customizes it.
func Defaults() models.LetterConfig {
	return models.LetterConfig{
		ID:              1,
		MinistryName:    "KEMENTERIAN PERINDUSTRIAN REPUBLIK INDONESIA",
		InstitutionName: "POLITEKNIK ATI PADANG",
		Address:         "Jl. Bungo Pasang, Tabing, Padang, Sumatera Barat 25171",
		ContactInfo:     "Telp. (0751) 7055053 | info@poltekatipdg.ac.id",

		HeaderMinistryFontSize:    16,
		HeaderInstitutionFontSize: 24,
		HeaderAddressFontSize:     13,
		LogoSize:                  100,

		LoanLetterNumberFormat:   "[ID]/BA-PINJAM/ATI/[BLN]/[THN]",
		ReturnLetterNumberFormat: "[ID]/BA-KEMBALI/ATI/[BLN]/[THN]",

		BodyHeader:  "BERITA ACARA PEMINJAMAN BARANG MILIK NEGARA",
		BodyOpening: "Pada hari ini telah dilakukan serah terima peminjaman Barang Milik Negara dengan rincian sebagai berikut:",
		BodyClosing: "Demikian berita acara ini dibuat untuk dipergunakan sebagaimana mestinya.",

		ReturnBodyHeader:  "BERITA ACARA PENGEMBALIAN BARANG MILIK NEGARA",
		ReturnBodyOpening: "Pada hari ini telah dilakukan serah terima pengembalian Barang Milik Negara dengan rincian sebagai berikut:",
		ReturnBodyClosing: "Demikian berita acara ini dibuat untuk dipergunakan sebagaimana mestinya.",
	}
}
