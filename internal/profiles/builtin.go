package profiles

// Ordered language set shared by the default, app and backend profiles.
var standardLanguages = []Language{
	{Code: "zh-CN", Column: "cn"},
	{Code: "zh-TW", Column: "zh-Hant"},
	{Code: "en", Column: "en"},
	{Code: "ja", Column: "ja"},
	{Code: "de", Column: "de"},
	{Code: "fr", Column: "fr"},
	{Code: "ru", Column: "ru"},
	{Code: "it", Column: "it"},
	{Code: "es", Column: "es"},
	{Code: "fi", Column: "fi"},
	{Code: "he", Column: "he"},
	{Code: "ar", Column: "ar"},
	{Code: "vi", Column: "vi"},
	{Code: "pt", Column: "pt"},
	{Code: "pl", Column: "pl"},
	{Code: "tr", Column: "tr"},
	{Code: "cs", Column: "cs"},
}

var standardOrder = []string{
	"key", "cn", "zh-Hant", "en", "ja", "de", "fr", "ru", "it", "es",
	"fi", "he", "ar", "vi", "pt", "pl", "tr", "cs",
}

var standardPivotTargets = []string{"zh-TW", "ja"}

func builtinProfiles() []*Profile {
	return []*Profile{
		{
			Name:         DefaultName,
			Languages:    standardLanguages,
			PivotTargets: standardPivotTargets,
			Order:        standardOrder,
		},
		{
			Name:         "app",
			Languages:    standardLanguages,
			PivotTargets: standardPivotTargets,
			Constants:    []string{"namespace", "type", "description"},
			Order:        append(append([]string{}, standardOrder...), "namespace", "type", "description"),
		},
		{
			Name: "backend",
			Languages: append(append([]Language{}, standardLanguages...),
				Language{Code: "sv", Column: "sv"},
				Language{Code: "nl", Column: "nl"},
			),
			PivotTargets: standardPivotTargets,
			Copies:       []Copy{{From: "he", To: "iw"}},
			Constants:    []string{"namespace"},
			Order: []string{
				"key", "cn", "zh-Hant", "en", "ja", "de", "fr", "ru", "it", "es",
				"fi", "he", "iw", "ar", "vi", "pt", "pl", "tr", "cs", "sv", "nl", "namespace",
			},
		},
		{
			Name: "f_app",
			Languages: []Language{
				{Code: "es", Column: "es"},
				{Code: "de", Column: "de"},
				{Code: "fr", Column: "fr"},
				{Code: "it", Column: "it"},
				{Code: "pt", Column: "pt"},
			},
			Order: []string{"key", "en", "es", "de", "fr", "it", "pt"},
		},
	}
}
