package source

import "vakit/internal/model"

// Provinces is the list of cities the bundled dataset is produced for.
var Provinces = []string{
	"Adana", "Adıyaman", "Afyonkarahisar", "Ağrı", "Aksaray", "Amasya",
	"Ankara", "Antalya", "Ardahan", "Artvin", "Aydın", "Balıkesir",
	"Bartın", "Batman", "Bayburt", "Bilecik", "Bingöl", "Bitlis",
	"Bolu", "Burdur", "Bursa", "Çanakkale", "Çankırı", "Çorum",
	"Denizli", "Diyarbakır", "Düzce", "Edirne", "Elazığ", "Erzincan",
	"Erzurum", "Eskişehir", "Gaziantep", "Giresun", "Gümüşhane", "Hakkari",
	"Hatay", "Iğdır", "Isparta", "İstanbul", "İzmir", "Kahramanmaraş",
	"Karabük", "Karaman", "Kars", "Kastamonu", "Kayseri", "Kırıkkale",
	"Kırklareli", "Kırşehir", "Kilis", "Kocaeli", "Konya", "Kütahya",
	"Malatya", "Manisa", "Mardin", "Mersin", "Muğla", "Muş",
	"Nevşehir", "Niğde", "Ordu", "Osmaniye", "Rize", "Sakarya",
	"Samsun", "Siirt", "Sinop", "Sivas", "Şanlıurfa", "Şırnak",
	"Tekirdağ", "Tokat", "Trabzon", "Tunceli", "Uşak", "Van",
	"Yalova", "Yozgat", "Zonguldak",
}

func provinceNames() map[string]string {
	out := make(map[string]string, len(Provinces))
	for _, p := range Provinces {
		out[model.Slug(p)] = p
	}
	return out
}

// LocationFor builds a Location from a province name or slug.
func LocationFor(nameOrID string) model.Location {
	id := model.Slug(nameOrID)
	if n, ok := provinceNames()[id]; ok {
		return model.Location{ID: id, Name: n}
	}
	return model.Location{ID: id, Name: nameOrID}
}
