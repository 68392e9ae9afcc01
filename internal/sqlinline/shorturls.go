package sqlinline

const QCreateShortURLsTable = `--sql 3f8c2a1d-44e7-4b0a-9c31-7de2a85b6f10
create table if not exists short_urls (
  short_key   text primary key,
  original_url text not null,
  created_at  timestamptz not null default now()
);
`

const QUpsertShortURL = `--sql b91d47c3-5a2e-4f68-8c04-12f9a3d7e4b2
insert into short_urls (short_key, original_url, created_at)
values ($1::text, $2::text, now())
on conflict (short_key) do update set
  original_url = excluded.original_url,
  created_at = now();
`

const QSelectShortURL = `--sql 7e5a90f2-1b3c-4d86-a45f-c08d6e2b913a
select original_url
from short_urls
where short_key = $1::text
limit 1;
`

const QDeleteShortURLsOlderThan = `--sql d2c81f64-9a07-4e3b-b5d9-3f61c7a804e5
delete from short_urls
where created_at < $1::timestamptz;
`
