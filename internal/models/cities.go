package models

// Cities are the locations a listing may be placed in
var Cities = []string{
	"Riyadh",
	"Jeddah",
	"Mecca",
	"Medina",
	"Dammam",
	"Khobar",
	"Dhahran",
	"Taif",
	"Buraidah",
	"Tabuk",
	"Khamis Mushait",
	"Hail",
	"Najran",
	"Abha",
	"Yanbu",
	"Al Kharj",
	"Jubail",
	"Al Qatif",
}

// IsKnownCity reports whether city is one of Cities
func IsKnownCity(city string) bool {
	for _, c := range Cities {
		if c == city {
			return true
		}
	}
	return false
}
