package verifier

import "strings"

// Static lookup data for the heuristic classifier. Kept deliberately
// small relative to commercial lists; operators are expected to extend
// these over time.

var disposableDomains = makeSet(`
mailinator.com
mailinator.net
mailinator.org
tempmail.org
temp-mail.org
temp-mail.io
10minutemail.com
10minutemail.co.za
20minutemail.com
30minutemail.com
60minutemail.com
guerrillamail.com
guerrillamail.net
guerrillamail.org
guerrillamail.biz
guerrillamail.de
guerrillamailblock.com
sharklasers.com
trashmail.com
trashmail.net
trashmail.de
trashmail.me
trash-mail.com
trash-mail.de
yopmail.com
yopmail.fr
yopmail.net
maildrop.cc
dispostable.com
fakeinbox.com
throwawaymail.com
throwawayemailaddress.com
mailnesia.com
getairmail.com
mytemp.email
tempail.com
tempomail.fr
tempinbox.com
tempmailaddress.com
mailmetrash.com
discard.email
discardmail.com
mailcatch.com
tempemail.net
mintemail.com
spamgourmet.com
spam4.me
spambox.us
suremail.info
temporaryinbox.com
mytrashmail.com
mailexpire.com
jetable.org
mailsac.com
maildu.de
wegwerfmail.de
wegwerfemail.de
kurzepost.de
spoofmail.de
armyspy.com
dayrep.com
einrot.com
fleckens.hu
gustr.com
rhyta.com
teleworm.us
superrito.com
bugmenot.com
deadaddress.com
devnullmail.com
dodgit.com
e4ward.com
emailsensei.com
filzmail.com
getonemail.com
harakirimail.com
hidemail.de
incognitomail.com
klzlk.com
kasmail.com
litedrop.com
mailcat.biz
mailforspam.com
mailnull.com
meltmail.com
mt2015.com
mycleaninbox.net
neverbox.com
nobulk.com
nospammail.net
objectmail.com
oneoffemail.com
pookmail.com
quickinbox.com
rcpt.at
recode.me
safetymail.info
sneakemail.com
sogetthis.com
spamavert.com
spambog.com
spamcannon.com
spamfree24.org
spamhole.com
spamify.com
tempalias.com
tempe-mail.com
tempymail.com
tradermail.info
veryrealemail.com
wh4f.org
willselfdestruct.com
zippymail.info
zoemail.org
`)

var freeEmailProviders = makeSet(`
gmail.com
yahoo.com
outlook.com
hotmail.com
live.com
aol.com
protonmail.com
proton.me
icloud.com
me.com
mail.com
yandex.com
yandex.ru
zoho.com
gmx.com
gmx.de
gmx.net
web.de
mail.ru
qq.com
163.com
126.com
`)

var roleAccounts = makeSet(`
admin
administrator
billing
contact
enquiries
feedback
help
hello
hr
info
inquiries
jobs
legal
list
mail
mailer-daemon
marketing
media
newsletter
no-reply
noreply
office
orders
press
privacy
root
sales
security
service
staff
subscribe
support
team
webmaster
`)

// Trap keywords are matched as substrings of the local part; trap
// domains are exact matches.
var spamTrapKeywords = []string{
	"spamtrap",
	"spam-trap",
	"honeypot",
	"honeytrap",
	"spamcop",
	"spambait",
}

var spamTrapDomains = makeSet(`
spamtrap.com
spamcop.net
abuse.net
uceprotect.net
`)

var abuseAccounts = makeSet(`
abuse
fraud
phishing
postmaster
spam
`)

var abuseDomains = makeSet(`
abuse.ch
spamhaus.org
surbl.org
`)

// Toxic domains: known complainers, litigators and blacklist feeders.
var toxicDomains = makeSet(`
knujon.com
knujon.net
ipetitions.com
lashback.com
`)

// Common provider misspellings with their intended domains.
var commonTypos = map[string]string{
	"gmai.com":    "gmail.com",
	"gmal.com":    "gmail.com",
	"gmial.com":   "gmail.com",
	"gmail.co":    "gmail.com",
	"gmail.cm":    "gmail.com",
	"yaho.com":    "yahoo.com",
	"yahooo.com":  "yahoo.com",
	"hotmai.com":  "hotmail.com",
	"hotmal.com":  "hotmail.com",
	"hotmail.co":  "hotmail.com",
	"outlok.com":  "outlook.com",
	"outloo.com":  "outlook.com",
	"iclou.com":   "icloud.com",
	"protonmai.com": "protonmail.com",
}

// Substring patterns matched against the primary exchanger hostname
// when scoring. Managed mail infrastructure raises confidence; parked,
// test and sinkhole exchangers lower it.
var legitimateMXPatterns = []string{
	"google.com",
	"googlemail.com",
	"aspmx",
	"protection.outlook.com",
	"olc.protection",
	"yahoodns.net",
	"zoho.com",
	"zoho.eu",
	"pphosted.com",
	"mimecast.com",
	"messagelabs.com",
	"barracudanetworks.com",
	"icloud.com",
	"mail.protection",
	"secureserver.net",
	"emailsrvr.com",
	"mailgun.org",
	"amazonaws.com",
}

var suspiciousMXPatterns = []string{
	"example.",
	"localhost",
	"invalid",
	"test.",
	"sinkhole",
	"blackhole",
	"parked",
	"bodis.com",
	"sedoparking.com",
	"parkingcrew.net",
	"h-email.net",
}

func makeSet(list string) map[string]bool {
	set := make(map[string]bool)
	for _, entry := range strings.Split(list, "\n") {
		entry = strings.TrimSpace(entry)
		if entry != "" {
			set[entry] = true
		}
	}
	return set
}
