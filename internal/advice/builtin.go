package advice

var builtin = map[string]Entry{
	"Alopecia Areata": {
		Remedies: []string{
			"See a dermatologist; corticosteroid injections or topical steroids are the usual first treatment.",
			"Topical minoxidil can help regrowth in patches that are already recovering.",
			"Manage stress and keep a balanced diet rich in iron, zinc and vitamin D.",
		},
		Cautions: []string{
			"Do not start oral steroids or immunosuppressants without medical supervision.",
			"Sudden widespread loss or loss of eyebrows and lashes needs prompt medical review.",
			"Avoid tight hairstyles and harsh chemical treatments on affected areas.",
		},
	},
	"Contact Dermatitis": {
		Remedies: []string{
			"Identify and stop using the product that triggered the reaction (dyes, shampoos, styling products).",
			"Rinse the scalp with lukewarm water and use a fragrance-free, mild shampoo.",
			"Cool compresses and over-the-counter hydrocortisone can ease itching.",
		},
		Cautions: []string{
			"Patch-test new hair products on a small area of skin first.",
			"Swelling of the face or eyes, or blistering, needs urgent medical attention.",
			"Avoid scratching, which can lead to a secondary infection.",
		},
	},
	"Folliculitis": {
		Remedies: []string{
			"Wash the scalp regularly with an antibacterial or antifungal shampoo.",
			"Apply warm compresses several times a day to soothe the follicles.",
			"Persistent cases may need topical or oral antibiotics prescribed by a doctor.",
		},
		Cautions: []string{
			"Do not pick or squeeze the bumps.",
			"Avoid sharing combs, towels and hats.",
			"Seek medical care if bumps spread, become painful boils, or come with fever.",
		},
	},
	"Head Lice": {
		Remedies: []string{
			"Use an approved lice treatment shampoo or lotion and repeat after 7 to 10 days.",
			"Comb wet hair with a fine-toothed nit comb every few days for two weeks.",
			"Wash bedding, hats and brushes in hot water.",
		},
		Cautions: []string{
			"Check and treat all household members at the same time.",
			"Do not use kerosene, gasoline or pet products on the scalp.",
			"Avoid head-to-head contact until treatment is complete.",
		},
	},
	"Healthy Hair": {
		Remedies: []string{
			"Keep a regular washing routine with a shampoo suited to your hair type.",
			"Eat a balanced diet with enough protein, iron and vitamins.",
			"Protect hair from excessive heat styling and sun exposure.",
		},
		Cautions: []string{
			"Limit chemical treatments such as bleaching, perms and relaxers.",
			"See a professional if you notice sudden shedding or scalp changes.",
		},
	},
	"Lichen Planus": {
		Remedies: []string{
			"See a dermatologist early; treatment can slow scarring hair loss.",
			"Topical or injected corticosteroids are commonly prescribed.",
			"Use gentle, fragrance-free hair products.",
		},
		Cautions: []string{
			"Hair lost to scarring does not grow back, so do not delay treatment.",
			"Avoid scratching or rubbing inflamed areas.",
			"Report mouth sores or nail changes to your doctor.",
		},
	},
	"Male Pattern Baldness": {
		Remedies: []string{
			"Topical minoxidil can slow loss and promote regrowth with daily use.",
			"Ask a doctor about oral finasteride.",
			"Low-level laser therapy and hair transplants are options for advanced cases.",
		},
		Cautions: []string{
			"Results from treatment take several months; stopping usually reverses gains.",
			"Discuss the side effects of finasteride with a doctor before starting.",
			"Be wary of supplements and products that promise quick regrowth.",
		},
	},
	"Psoriasis": {
		Remedies: []string{
			"Use medicated shampoos containing coal tar or salicylic acid.",
			"Soften scales with mineral oil before washing.",
			"A dermatologist can prescribe topical steroids or vitamin D analogues.",
		},
		Cautions: []string{
			"Do not pick or forcefully remove scales.",
			"Stress, smoking and alcohol can trigger flare-ups.",
			"Joint pain alongside scalp plaques should be checked by a doctor.",
		},
	},
	"Seborrheic Dermatitis": {
		Remedies: []string{
			"Wash with anti-dandruff shampoo containing ketoconazole, selenium sulfide or zinc pyrithione.",
			"Leave medicated shampoo on the scalp for a few minutes before rinsing.",
			"Alternate between shampoo types if one stops working.",
		},
		Cautions: []string{
			"Avoid heavy oils and greasy styling products on the scalp.",
			"Flare-ups are common in cold weather and under stress.",
			"See a doctor if the rash spreads to the face or does not improve.",
		},
	},
	"Telogen Effluvium": {
		Remedies: []string{
			"Identify the trigger (illness, surgery, childbirth, stress, crash diets or medication changes).",
			"Eat enough protein and have iron, thyroid and vitamin levels checked.",
			"Be patient; shedding usually settles within six months once the trigger is removed.",
		},
		Cautions: []string{
			"Do not stop prescribed medication without talking to your doctor.",
			"Shedding that lasts more than six months needs medical evaluation.",
			"Avoid aggressive brushing and tight hairstyles while shedding.",
		},
	},
	"Tinea Capitis": {
		Remedies: []string{
			"See a doctor; oral antifungal medication is required to clear the infection.",
			"Antifungal shampoo reduces spread while on treatment.",
			"Wash and disinfect combs, brushes, pillowcases and hats.",
		},
		Cautions: []string{
			"Topical creams alone do not cure scalp ringworm.",
			"The infection is contagious; avoid sharing personal items.",
			"Check pets and family members for signs of infection.",
		},
	},
}
