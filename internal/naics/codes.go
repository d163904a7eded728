package naics

// sectorTitles maps 2-digit NAICS sector codes to their official titles.
// Source: Census Bureau 2022 NAICS.
var sectorTitles = map[string]string{
	"11": "Agriculture, Forestry, Fishing and Hunting",
	"21": "Mining, Quarrying, and Oil and Gas Extraction",
	"22": "Utilities",
	"23": "Construction",
	"31": "Manufacturing",
	"32": "Manufacturing",
	"33": "Manufacturing",
	"42": "Wholesale Trade",
	"44": "Retail Trade",
	"45": "Retail Trade",
	"48": "Transportation and Warehousing",
	"49": "Transportation and Warehousing",
	"51": "Information",
	"52": "Finance and Insurance",
	"53": "Real Estate and Rental and Leasing",
	"54": "Professional, Scientific, and Technical Services",
	"55": "Management of Companies and Enterprises",
	"56": "Administrative and Support and Waste Management",
	"61": "Educational Services",
	"62": "Health Care and Social Assistance",
	"71": "Arts, Entertainment, and Recreation",
	"72": "Accommodation and Food Services",
	"81": "Other Services (except Public Administration)",
	"92": "Public Administration",
}

// Titles maps 6-digit NAICS codes to their official titles. Covers the codes
// most commonly seen on federal contracting opportunities.
// Source: Census Bureau 2022 NAICS.
var Titles = map[string]string{
	// Construction
	"236210": "Industrial Building Construction",
	"236220": "Commercial and Institutional Building Construction",
	"237110": "Water and Sewer Line and Related Structures Construction",
	"237310": "Highway, Street, and Bridge Construction",
	"237990": "Other Heavy and Civil Engineering Construction",
	"238160": "Roofing Contractors",
	"238210": "Electrical Contractors and Other Wiring Installation Contractors",
	"238220": "Plumbing, Heating, and Air-Conditioning Contractors",
	"238990": "All Other Specialty Trade Contractors",

	// Manufacturing
	"325412": "Pharmaceutical Preparation Manufacturing",
	"332994": "Small Arms, Ordnance, and Ordnance Accessories Manufacturing",
	"333318": "Other Commercial and Service Industry Machinery Manufacturing",
	"334111": "Electronic Computer Manufacturing",
	"334220": "Radio and Television Broadcasting and Wireless Communications Equipment Manufacturing",
	"334290": "Other Communications Equipment Manufacturing",
	"334511": "Search, Detection, Navigation, Guidance, Aeronautical, and Nautical System and Instrument Manufacturing",
	"334516": "Analytical Laboratory Instrument Manufacturing",
	"336411": "Aircraft Manufacturing",
	"336413": "Other Aircraft Parts and Auxiliary Equipment Manufacturing",
	"336611": "Ship Building and Repairing",
	"339112": "Surgical and Medical Instrument Manufacturing",
	"339113": "Surgical Appliance and Supplies Manufacturing",

	// Wholesale/Retail
	"423450": "Medical, Dental, and Hospital Equipment and Supplies Merchant Wholesalers",
	"424210": "Drugs and Druggists' Sundries Merchant Wholesalers",

	// Transportation and Warehousing
	"481212": "Nonscheduled Chartered Freight Air Transportation",
	"488190": "Other Support Activities for Air Transportation",
	"493110": "General Warehousing and Storage",

	// Information
	"511210": "Software Publishers",
	"517110": "Wired Telecommunications Carriers",
	"518210": "Computing Infrastructure Providers, Data Processing, Web Hosting, and Related Services",
	"519190": "All Other Information Services",

	// Finance and Insurance
	"522110": "Commercial Banking",
	"524114": "Direct Health and Medical Insurance Carriers",

	// Real Estate
	"531120": "Lessors of Nonresidential Buildings (except Miniwarehouses)",
	"531210": "Offices of Real Estate Agents and Brokers",
	"532120": "Truck, Utility Trailer, and RV (Recreational Vehicle) Rental and Leasing",

	// Professional, Scientific, and Technical Services
	"541110": "Offices of Lawyers",
	"541211": "Offices of Certified Public Accountants",
	"541219": "Other Accounting Services",
	"541310": "Architectural Services",
	"541330": "Engineering Services",
	"541380": "Testing Laboratories and Services",
	"541511": "Custom Computer Programming Services",
	"541512": "Computer Systems Design Services",
	"541513": "Computer Facilities Management Services",
	"541519": "Other Computer Related Services",
	"541611": "Administrative Management and General Management Consulting Services",
	"541618": "Other Management Consulting Services",
	"541690": "Other Scientific and Technical Consulting Services",
	"541710": "Research and Development in the Physical, Engineering, and Life Sciences",
	"541712": "Research and Development in the Physical, Engineering, and Life Sciences (except Biotechnology)",
	"541715": "Research and Development in the Physical, Engineering, and Life Sciences (except Nanotechnology and Biotechnology)",
	"541720": "Research and Development in the Social Sciences and Humanities",
	"541990": "All Other Professional, Scientific, and Technical Services",

	// Administrative and Support
	"561110": "Office Administrative Services",
	"561210": "Facilities Support Services",
	"561320": "Temporary Help Services",
	"561612": "Security Guards and Patrol Services",
	"561621": "Security Systems Services (except Locksmiths)",
	"561720": "Janitorial Services",
	"561730": "Landscaping Services",
	"562211": "Hazardous Waste Treatment and Disposal",
	"562910": "Remediation Services",

	// Educational Services
	"611310": "Colleges, Universities, and Professional Schools",
	"611430": "Professional and Management Development Training",
	"611512": "Flight Training",

	// Health Care
	"621111": "Offices of Physicians (except Mental Health Specialists)",
	"621399": "Offices of All Other Miscellaneous Health Practitioners",
	"621511": "Medical Laboratories",
	"621610": "Home Health Care Services",
	"622110": "General Medical and Surgical Hospitals",
	"623110": "Nursing Care Facilities (Skilled Nursing Facilities)",
	"624229": "Other Community Housing Services",

	// Accommodation and Food Services
	"721110": "Hotels (except Casino Hotels) and Motels",
	"722310": "Food Service Contractors",

	// Other Services
	"811210": "Electronic and Precision Equipment Repair and Maintenance",
	"811310": "Commercial and Industrial Machinery and Equipment (except Automotive and Electronic) Repair and Maintenance",
	"812320": "Drycleaning and Laundry Services (except Coin-Operated)",
	"813312": "Environment, Conservation and Wildlife Organizations",

	// Public Administration
	"921190": "Other General Government Support",
	"928110": "National Security",
}
